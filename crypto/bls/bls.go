// Package bls wraps BLS signatures over the bn256 pairing. Public keys live
// in G2 and are exchanged as plotpk.PubKey; signatures live in G1.
//
// Signatures over the same message aggregate into a signature that verifies
// against the sum of the public keys, which is how a plot key made of a
// harvester key and a farmer key is used.
package bls

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	kbls "go.dedis.ch/kyber/v3/sign/bls"

	"github.com/rony4d/go-spacetime/inter/plotpk"
)

var suite = bn256.NewSuite()

// ErrWrongKeyType is returned for keys of another scheme.
var ErrWrongKeyType = errors.New("not a bn256 G2 key")

// SecretKey is a BLS private key.
type SecretKey struct {
	s kyber.Scalar
}

// KeyGen derives a secret key from seed bytes.
func KeyGen(seed []byte) *SecretKey {
	h := sha256.Sum256(seed)
	return &SecretKey{s: suite.G2().Scalar().SetBytes(h[:])}
}

// Child derives a hardened child key.
func (sk *SecretKey) Child(index uint32) *SecretKey {
	return KeyGen(append(sk.Bytes(), bigendian.Uint32ToBytes(index)...))
}

// Derive walks a path of child indexes.
func (sk *SecretKey) Derive(path ...uint32) *SecretKey {
	k := sk
	for _, i := range path {
		k = k.Child(i)
	}
	return k
}

// Bytes returns the marshalled scalar.
func (sk *SecretKey) Bytes() []byte {
	b, err := sk.s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

// PublicKey returns the G2 public key.
func (sk *SecretKey) PublicKey() plotpk.PubKey {
	return pointToPubKey(suite.G2().Point().Mul(sk.s, nil))
}

// Sign signs msg.
func (sk *SecretKey) Sign(msg []byte) ([]byte, error) {
	return kbls.Sign(suite, sk.s, msg)
}

// Verify checks sig against pk.
func Verify(pk plotpk.PubKey, msg, sig []byte) error {
	p, err := pubKeyToPoint(pk)
	if err != nil {
		return err
	}
	return kbls.Verify(suite, p, msg, sig)
}

// Aggregate combines signatures. The result does not depend on the order.
func Aggregate(sigs ...[]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, errors.New("nothing to aggregate")
	}
	return kbls.AggregateSignatures(suite, sigs...)
}

// AggregatePublicKeys sums public keys.
func AggregatePublicKeys(pks ...plotpk.PubKey) (plotpk.PubKey, error) {
	if len(pks) == 0 {
		return plotpk.PubKey{}, errors.New("nothing to aggregate")
	}
	points := make([]kyber.Point, len(pks))
	for i, pk := range pks {
		p, err := pubKeyToPoint(pk)
		if err != nil {
			return plotpk.PubKey{}, err
		}
		points[i] = p
	}
	return pointToPubKey(kbls.AggregatePublicKeys(suite, points...)), nil
}

func pointToPubKey(p kyber.Point) plotpk.PubKey {
	raw, err := p.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return plotpk.PubKey{Type: plotpk.Types.BN256G2, Raw: raw}
}

func pubKeyToPoint(pk plotpk.PubKey) (kyber.Point, error) {
	if pk.Type != plotpk.Types.BN256G2 {
		return nil, ErrWrongKeyType
	}
	p := suite.G2().Point()
	if err := p.UnmarshalBinary(pk.Raw); err != nil {
		return nil, fmt.Errorf("bad public key: %w", err)
	}
	return p, nil
}
