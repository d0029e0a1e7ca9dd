// Package keychain holds the farmer, pool and harvester keys a block producer
// signs with. Keys are derived deterministically from a seed so that block
// tools produce reproducible chains.
package keychain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-spacetime/crypto/bls"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/plotpk"
)

var (
	// ErrMissingPoolSignature is returned when the pool key of a proof is unknown.
	ErrMissingPoolSignature = errors.New("missing pool signature")
	// ErrMissingFarmerSignature is returned when a plot key is unknown.
	ErrMissingFarmerSignature = errors.New("missing farmer signature")
)

// Derivation path purposes.
const (
	purpose  uint32 = 12381
	coinType uint32 = 8444

	farmerPath uint32 = 0
	poolPath   uint32 = 1
	walletPath uint32 = 2
	localPath  uint32 = 3
)

// Keychain is safe for concurrent use.
type Keychain struct {
	farmer *bls.SecretKey
	pool   *bls.SecretKey
	wallet *bls.SecretKey

	mu    sync.RWMutex
	plots map[string]*bls.SecretKey // plot public key -> harvester local key
}

// New derives all keys from seed.
func New(seed []byte) *Keychain {
	farmerMaster := bls.KeyGen(append([]byte("farmer key "), seed...))
	poolMaster := bls.KeyGen(append([]byte("pool key "), seed...))
	return &Keychain{
		farmer: farmerMaster.Derive(purpose, coinType, farmerPath, 0),
		pool:   poolMaster.Derive(purpose, coinType, poolPath, 0),
		wallet: farmerMaster.Derive(purpose, coinType, walletPath, 0),
		plots:  make(map[string]*bls.SecretKey),
	}
}

// PuzzleHash is the puzzle hash paying to pk.
func PuzzleHash(pk plotpk.PubKey) hash.Hash {
	return hash.Of([]byte("puzzle"), pk.Bytes())
}

// FarmerPublicKey signs foliage together with the harvester key.
func (k *Keychain) FarmerPublicKey() plotpk.PubKey {
	return k.farmer.PublicKey()
}

// PoolPublicKey signs pool targets.
func (k *Keychain) PoolPublicKey() plotpk.PubKey {
	return k.pool.PublicKey()
}

// FarmerPuzzleHash receives farmer rewards.
func (k *Keychain) FarmerPuzzleHash() hash.Hash {
	return PuzzleHash(k.wallet.PublicKey())
}

// PoolPuzzleHash receives pool rewards.
func (k *Keychain) PoolPuzzleHash() hash.Hash {
	return PuzzleHash(k.pool.PublicKey())
}

// LocalKey returns the harvester key of the i-th plot.
func (k *Keychain) LocalKey(i uint32) *bls.SecretKey {
	return k.farmer.Derive(localPath, i)
}

// AddPlotKey registers a harvester key and returns the plot public key, the
// sum of the harvester and farmer public keys.
func (k *Keychain) AddPlotKey(local *bls.SecretKey) (plotpk.PubKey, error) {
	pk, err := bls.AggregatePublicKeys(local.PublicKey(), k.FarmerPublicKey())
	if err != nil {
		return plotpk.PubKey{}, err
	}
	k.mu.Lock()
	k.plots[pk.String()] = local
	k.mu.Unlock()
	return pk, nil
}

// PlotSignature signs msg with both shares of plotPK and aggregates them.
func (k *Keychain) PlotSignature(msg []byte, plotPK plotpk.PubKey) ([]byte, error) {
	k.mu.RLock()
	local, ok := k.plots[plotPK.String()]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown plot key %s", ErrMissingFarmerSignature, plotPK)
	}
	harvesterShare, err := local.Sign(msg)
	if err != nil {
		return nil, err
	}
	farmerShare, err := k.farmer.Sign(msg)
	if err != nil {
		return nil, err
	}
	return bls.Aggregate(harvesterShare, farmerShare)
}

// PoolSignature signs a pool target with the key behind poolPK.
func (k *Keychain) PoolSignature(target inter.PoolTarget, poolPK plotpk.PubKey) ([]byte, error) {
	if !poolPK.Equal(k.PoolPublicKey()) {
		return nil, fmt.Errorf("%w: unknown pool key %s", ErrMissingPoolSignature, poolPK)
	}
	return k.pool.Sign(target.Bytes())
}
