// Package ier (inter-epoch records) defines the summaries written at
// sub-epoch boundaries. A summary chains to the previous one and records the
// new difficulty and iterations per second whenever an epoch ends with it.
package ier

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// SubEpochSummary closes a sub-epoch.
type SubEpochSummary struct {
	PrevSubEpochSummaryHash hash.Hash
	// RewardChainHash is the reward chain output at the boundary block.
	RewardChainHash hash.Hash
	// NumOverflowBlocks counts overflow blocks inside the sub-epoch.
	NumOverflowBlocks uint8
	// NewDifficulty and NewIPS are zero unless the sub-epoch also ends an epoch.
	NewDifficulty uint64
	NewIPS        uint64
}

// IdxSubEpochSummary is a summary together with its sub-epoch number.
type IdxSubEpochSummary struct {
	SubEpochSummary
	Idx idx.Epoch
}

// EndsEpoch reports whether the summary carries retargeted parameters.
func (s SubEpochSummary) EndsEpoch() bool {
	return s.NewDifficulty != 0 || s.NewIPS != 0
}

// Hash links summaries together.
func (s SubEpochSummary) Hash() hash.Hash {
	return hash.Of(
		s.PrevSubEpochSummaryHash.Bytes(),
		s.RewardChainHash.Bytes(),
		[]byte{s.NumOverflowBlocks},
		bigendian.Uint64ToBytes(s.NewDifficulty),
		bigendian.Uint64ToBytes(s.NewIPS),
	)
}
