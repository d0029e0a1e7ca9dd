// Package ibr (inter-block records) defines the compact record kept for every
// accepted block. Difficulty adjustment and fork choice only need these
// counters, so the full block body does not have to be loaded to walk the
// chain.
package ibr

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-spacetime/inter"
)

// SubBlockRecord summarizes one block.
type SubBlockRecord struct {
	HeaderHash hash.Hash
	PrevHash   hash.Hash
	Height     idx.Block
	Weight     *big.Int
	TotalIters *big.Int
	// RequiredIters of the block's proof of space.
	RequiredIters uint64
	Deficit       uint8
	// IsBlock is set for challenge blocks.
	IsBlock            bool
	IsTransactionBlock bool
	Overflow           bool
	// Timestamp is only known for transaction blocks and zero otherwise.
	Timestamp inter.Timestamp
	// RewardInfusionNewChallenge is the hash of the reward chain infusion
	// point VDF; the next block's reward chain starts from it.
	RewardInfusionNewChallenge hash.Hash
	// FinishedChallengeSlotHashes lists the challenge slots closed by the block.
	FinishedChallengeSlotHashes []hash.Hash
}

// NewSubBlockRecord extracts the record of a block.
func NewSubBlockRecord(b *inter.Block) SubBlockRecord {
	r := SubBlockRecord{
		HeaderHash:                 b.HeaderHash(),
		PrevHash:                   b.PrevHeaderHash(),
		Height:                     b.Height(),
		Weight:                     new(big.Int).Set(b.Weight()),
		TotalIters:                 new(big.Int).Set(b.TotalIters()),
		RequiredIters:              b.RewardChainSubBlock.RequiredIters,
		Deficit:                    b.Deficit(),
		IsBlock:                    b.Kind() == inter.ChallengeBlock,
		IsTransactionBlock:         b.IsTransactionBlock(),
		Overflow:                   b.RewardChainSubBlock.Overflow,
		Timestamp:                  b.Timestamp(),
		RewardInfusionNewChallenge: b.RewardChainSubBlock.RewardChainIPVDF.Hash(),
	}
	for _, s := range b.FinishedSlots {
		r.FinishedChallengeSlotHashes = append(r.FinishedChallengeSlotHashes, s.ChallengeChain.Hash())
	}
	return r
}

// FirstInSlot reports whether the block closed at least one slot.
func (r SubBlockRecord) FirstInSlot() bool {
	return len(r.FinishedChallengeSlotHashes) != 0
}

// Hash commits to the counters of the record.
func (r SubBlockRecord) Hash() hash.Hash {
	flags := byte(0)
	if r.IsBlock {
		flags |= 1
	}
	if r.IsTransactionBlock {
		flags |= 2
	}
	if r.Overflow {
		flags |= 4
	}
	return hash.Of(
		r.HeaderHash.Bytes(),
		r.PrevHash.Bytes(),
		bigendian.Uint64ToBytes(uint64(r.Height)),
		r.Weight.Bytes(),
		r.TotalIters.Bytes(),
		bigendian.Uint64ToBytes(r.RequiredIters),
		[]byte{r.Deficit, flags},
		r.Timestamp.Bytes(),
		r.RewardInfusionNewChallenge.Bytes(),
	)
}
