package pos

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/crypto/bls"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/plotpk"
)

// ErrNoProofAvailable is returned when no plot answers a challenge.
var ErrNoProofAvailable = errors.New("no proof of space available")

// Selection is the winning proof for a challenge.
type Selection struct {
	RequiredIters uint64
	ProofOfSpace  inter.ProofOfSpace
	Quality       hash.Hash
	PlotPublicKey plotpk.PubKey
}

// Selector picks proofs among a fixed set of plots.
type Selector struct {
	constants consensus.Constants
	plots     []Plot

	Log log.Logger
}

// NewSelector sorts the plots by id so that selection only depends on the
// random source.
func NewSelector(c consensus.Constants, plots []Plot) *Selector {
	sorted := append([]Plot(nil), plots...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].ID(), sorted[j].ID()
		return bytes.Compare(a.Bytes(), b.Bytes()) < 0
	})
	return &Selector{
		constants: c,
		plots:     sorted,
		Log:       log.New("module", "pos"),
	}
}

// Plots returns the plots in selection order.
func (s *Selector) Plots() []Plot {
	return s.plots
}

// SelectProof draws up to 3 plots per plot from rng and keeps the first
// quality found. It does not look for the best quality. A quality needing
// slotIters or more iterations cannot be infused and is not eligible.
func (s *Selector) SelectProof(rng *rand.Rand, challenge hash.Hash, difficulty, minIters, slotIters uint64) (Selection, error) {
	if len(s.plots) == 0 {
		return Selection{}, fmt.Errorf("%w: no plots", ErrNoProofAvailable)
	}
	zeroBits := s.constants.Difficulty.NumberZeroBitsChallengeSig
	for attempt := 0; attempt < 3*len(s.plots); attempt++ {
		plot := s.plots[rng.Intn(len(s.plots))]
		if !CanCreateProof(plot.ID(), challenge, zeroBits) {
			continue
		}
		qualities, err := plot.QualitiesForChallenge(challenge)
		if err != nil {
			return Selection{}, err
		}
		for i, quality := range qualities {
			iters := consensus.CalculateIterationsQuality(quality, plot.Size(), difficulty, minIters)
			if iters >= slotIters {
				s.Log.Trace("Quality does not fit into the slot", "plot", plot.ID().String(), "iters", iters, "slot", slotIters)
				continue
			}
			return s.selection(plot, challenge, i, quality, iters)
		}
	}
	return Selection{}, fmt.Errorf("%w: challenge %s", ErrNoProofAvailable, challenge.String())
}

func (s *Selector) selection(plot Plot, challenge hash.Hash, index int, quality hash.Hash, iters uint64) (Selection, error) {
	proof, err := plot.FullProof(challenge, index)
	if err != nil {
		return Selection{}, err
	}
	plotPK, err := bls.AggregatePublicKeys(plot.LocalPublicKey(), plot.FarmerPublicKey())
	if err != nil {
		return Selection{}, err
	}
	s.Log.Trace("Selected proof of space", "plot", plot.ID().String(), "quality", quality.String(), "iters", iters)
	return Selection{
		RequiredIters: iters,
		ProofOfSpace: inter.ProofOfSpace{
			Challenge:     challenge,
			PoolPublicKey: plot.PoolPublicKey().Copy(),
			PlotPublicKey: plotPK,
			Size:          plot.Size(),
			Proof:         proof,
		},
		Quality:       quality,
		PlotPublicKey: plotPK,
	}, nil
}
