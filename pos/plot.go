// Package pos selects a proof of space for a challenge among the plots of a
// farmer and turns its quality into a number of required VDF iterations.
package pos

import (
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-spacetime/inter/plotpk"
)

// Plot is a committed storage entry able to answer challenges.
type Plot interface {
	// ID of the plot, derived from its pool and plot public keys.
	ID() hash.Hash
	// Size is the k parameter.
	Size() uint8
	// QualitiesForChallenge returns zero or more qualities.
	QualitiesForChallenge(challenge hash.Hash) ([]hash.Hash, error)
	// FullProof returns the proof bytes behind the index-th quality.
	FullProof(challenge hash.Hash, index int) ([]byte, error)

	LocalPublicKey() plotpk.PubKey
	FarmerPublicKey() plotpk.PubKey
	PoolPublicKey() plotpk.PubKey
}

// CanCreateProof is the plot filter: a plot may answer a challenge only if
// the hash of its id and the challenge starts with zeroBits zero bits.
func CanCreateProof(plotID, challenge hash.Hash, zeroBits uint8) bool {
	h := hash.Of(plotID.Bytes(), challenge.Bytes())
	for i := uint8(0); i < zeroBits; i++ {
		if int(i/8) >= len(h) {
			return true
		}
		if h[i/8]&(0x80>>(i%8)) != 0 {
			return false
		}
	}
	return true
}
