// Package inter defines the consensus data structures of the chain: blocks,
// their reward chain trunk, foliage, VDF and proof of space records.
//
// All of them are value objects. They are built once by the block assembler
// and never mutated afterwards; Hash() of each is sha256 over its rlp
// encoding.
package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// BlockKind tells whether a block carries a challenge chain infusion.
type BlockKind uint8

const (
	// Continuation omits the challenge chain infusion point data. It is only
	// allowed while the deficit is positive.
	Continuation BlockKind = iota
	// ChallengeBlock infuses into the challenge chain and resets the deficit.
	ChallengeBlock
)

// KindFromDeficit decides the kind of the next block from the current deficit.
func KindFromDeficit(deficit uint8) BlockKind {
	if deficit > 0 {
		return Continuation
	}
	return ChallengeBlock
}

func (k BlockKind) String() string {
	switch k {
	case Continuation:
		return "continuation"
	case ChallengeBlock:
		return "challenge"
	default:
		return "unknown"
	}
}

// Block is a full sub-block.
type Block struct {
	// FinishedSlots are the slots that ended since the previous block.
	FinishedSlots       []EndOfSlotBundle
	RewardChainSubBlock RewardChainSubBlock

	ChallengeChainICPProof VDFProof
	// ChallengeChainIPProof is nil for continuation blocks.
	ChallengeChainIPProof *VDFProof `rlp:"nil"`
	RewardChainICPProof   VDFProof
	RewardChainIPProof    VDFProof

	FoliageSubBlock FoliageSubBlock
	// FoliageBlock and TransactionsInfo are only set for transaction blocks.
	FoliageBlock     *FoliageBlock     `rlp:"nil"`
	TransactionsInfo *TransactionsInfo `rlp:"nil"`

	TransactionsFilter    []byte
	TransactionsGenerator []byte
}

// Height of the block.
func (b *Block) Height() idx.Block {
	return b.RewardChainSubBlock.Height
}

// Weight is the cumulative difficulty up to and including the block.
func (b *Block) Weight() *big.Int {
	return b.RewardChainSubBlock.Weight
}

// TotalIters is the cumulative number of VDF iterations up to the block.
func (b *Block) TotalIters() *big.Int {
	return b.RewardChainSubBlock.TotalIters
}

// Deficit after the block.
func (b *Block) Deficit() uint8 {
	return b.RewardChainSubBlock.Deficit
}

// HeaderHash identifies the block.
func (b *Block) HeaderHash() hash.Hash {
	return b.FoliageSubBlock.Hash()
}

// PrevHeaderHash is the header hash of the parent, zero for genesis.
func (b *Block) PrevHeaderHash() hash.Hash {
	return b.FoliageSubBlock.PrevSubBlockHash
}

// IsTransactionBlock reports whether the block carries a foliage block.
func (b *Block) IsTransactionBlock() bool {
	return b.FoliageBlock != nil
}

// Kind of the block.
func (b *Block) Kind() BlockKind {
	if b.RewardChainSubBlock.IsBlock {
		return ChallengeBlock
	}
	return Continuation
}

// Timestamp of a transaction block, zero otherwise.
func (b *Block) Timestamp() Timestamp {
	if b.FoliageBlock == nil {
		return 0
	}
	return b.FoliageBlock.Timestamp
}

// Header returns the light client view of the block.
func (b *Block) Header() HeaderBlock {
	return HeaderBlock{
		FinishedSlots:          b.FinishedSlots,
		RewardChainSubBlock:    b.RewardChainSubBlock,
		ChallengeChainICPProof: b.ChallengeChainICPProof,
		ChallengeChainIPProof:  b.ChallengeChainIPProof,
		RewardChainICPProof:    b.RewardChainICPProof,
		RewardChainIPProof:     b.RewardChainIPProof,
		FoliageSubBlock:        b.FoliageSubBlock,
		FoliageBlock:           b.FoliageBlock,
		TransactionsFilter:     b.TransactionsFilter,
	}
}

// HeaderBlock is a Block without the generator and transactions info, but
// with the filter. Light clients use it.
type HeaderBlock struct {
	FinishedSlots          []EndOfSlotBundle
	RewardChainSubBlock    RewardChainSubBlock
	ChallengeChainICPProof VDFProof
	ChallengeChainIPProof  *VDFProof `rlp:"nil"`
	RewardChainICPProof    VDFProof
	RewardChainIPProof     VDFProof
	FoliageSubBlock        FoliageSubBlock
	FoliageBlock           *FoliageBlock `rlp:"nil"`
	TransactionsFilter     []byte
}

// HeaderHash is the same as the one of the full block.
func (h *HeaderBlock) HeaderHash() hash.Hash {
	return h.FoliageSubBlock.Hash()
}

// Height of the block.
func (h *HeaderBlock) Height() idx.Block {
	return h.RewardChainSubBlock.Height
}
