package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-spacetime/inter/plotpk"
)

// ProofOfSpace proves that a plot committed to storage answered a challenge.
type ProofOfSpace struct {
	Challenge     hash.Hash
	PoolPublicKey plotpk.PubKey
	// PlotPublicKey is the aggregate of the harvester's local key and the
	// farmer key.
	PlotPublicKey plotpk.PubKey
	// Size is the plot's k parameter.
	Size  uint8
	Proof []byte
}

// PlotID is the identifier a plot with these keys has on disk.
func (p ProofOfSpace) PlotID() hash.Hash {
	return CalculatePlotID(p.PoolPublicKey, p.PlotPublicKey)
}

// Hash of the proof.
func (p ProofOfSpace) Hash() hash.Hash {
	return rlpHash(p)
}

// Copy returns a deep copy.
func (p ProofOfSpace) Copy() ProofOfSpace {
	cp := p
	cp.PoolPublicKey = p.PoolPublicKey.Copy()
	cp.PlotPublicKey = p.PlotPublicKey.Copy()
	cp.Proof = common.CopyBytes(p.Proof)
	return cp
}

// CalculatePlotID derives a plot id from the pool and plot keys.
func CalculatePlotID(pool, plot plotpk.PubKey) hash.Hash {
	return hash.Of(pool.Bytes(), plot.Bytes())
}
