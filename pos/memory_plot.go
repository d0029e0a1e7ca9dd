package pos

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-spacetime/crypto/bls"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/plotpk"
)

// ErrNoSuchProof is returned for a quality index the plot does not have.
var ErrNoSuchProof = errors.New("no proof for the quality index")

// MemoryPlot answers challenges from a hash of its id instead of a table on
// disk. It is deterministic, so chains built on it are reproducible.
type MemoryPlot struct {
	size   uint8
	local  plotpk.PubKey
	farmer plotpk.PubKey
	pool   plotpk.PubKey
	id     hash.Hash
}

// NewMemoryPlot creates a plot of the given size owned by the keys.
func NewMemoryPlot(size uint8, local, farmer, pool plotpk.PubKey) (*MemoryPlot, error) {
	plotPK, err := bls.AggregatePublicKeys(local, farmer)
	if err != nil {
		return nil, err
	}
	return &MemoryPlot{
		size:   size,
		local:  local,
		farmer: farmer,
		pool:   pool,
		id:     inter.CalculatePlotID(pool, plotPK),
	}, nil
}

func (p *MemoryPlot) ID() hash.Hash                  { return p.id }
func (p *MemoryPlot) Size() uint8                    { return p.size }
func (p *MemoryPlot) LocalPublicKey() plotpk.PubKey  { return p.local }
func (p *MemoryPlot) FarmerPublicKey() plotpk.PubKey { return p.farmer }
func (p *MemoryPlot) PoolPublicKey() plotpk.PubKey   { return p.pool }

func (p *MemoryPlot) seed(challenge hash.Hash) hash.Hash {
	return hash.Of(p.id.Bytes(), challenge.Bytes())
}

// QualitiesForChallenge returns between zero and two qualities.
func (p *MemoryPlot) QualitiesForChallenge(challenge hash.Hash) ([]hash.Hash, error) {
	seed := p.seed(challenge)
	n := int(seed[0] % 3)
	qualities := make([]hash.Hash, n)
	for i := range qualities {
		qualities[i] = hash.Of(seed.Bytes(), []byte{byte(i)})
	}
	return qualities, nil
}

// FullProof returns 8*k bytes bound to the quality.
func (p *MemoryPlot) FullProof(challenge hash.Hash, index int) ([]byte, error) {
	seed := p.seed(challenge)
	if index < 0 || index >= int(seed[0]%3) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchProof, index)
	}
	proof := make([]byte, 0, 8*int(p.size))
	for counter := byte(0); len(proof) < 8*int(p.size); counter++ {
		chunk := hash.Of(seed.Bytes(), []byte{byte(index), counter})
		proof = append(proof, chunk.Bytes()...)
	}
	return proof[:8*int(p.size)], nil
}
