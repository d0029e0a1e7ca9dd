package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// PoolTarget names where the pool reward of a block goes. The pool signs it,
// so a farmer cannot redirect the reward.
type PoolTarget struct {
	PuzzleHash hash.Hash
	MaxHeight  idx.Block
}

// Bytes is the message the pool key signs.
func (t PoolTarget) Bytes() []byte {
	b, err := rlp.EncodeToBytes(t)
	if err != nil {
		panic("can't encode: " + err.Error())
	}
	return b
}

// FoliageSubBlockData is the part of the foliage signed by the plot key.
type FoliageSubBlockData struct {
	UnfinishedRewardBlockHash hash.Hash
	PoolTarget                PoolTarget
	PoolSignature             []byte
	FarmerRewardPuzzleHash    hash.Hash
	// ExtensionData lets a farmer produce distinct foliage for the same proofs.
	ExtensionData        hash.Hash
	PrevFoliageBlockHash hash.Hash
}

// Hash is the plot key signing message.
func (d FoliageSubBlockData) Hash() hash.Hash {
	return rlpHash(d)
}

// FoliageSubBlock is present in every block. Its hash is the header hash.
type FoliageSubBlock struct {
	PrevSubBlockHash hash.Hash
	RewardBlockHash  hash.Hash
	IsBlock          bool
	Data             FoliageSubBlockData
	// FoliageBlockHash is zero unless the block is a transaction block.
	FoliageBlockHash hash.Hash
	PlotKeySignature []byte
}

// Hash of the foliage sub-block, i.e. the header hash.
func (f FoliageSubBlock) Hash() hash.Hash {
	return rlpHash(f)
}

// FoliageBlock is only present in transaction blocks.
type FoliageBlock struct {
	PrevBlockHash hash.Hash
	Timestamp     Timestamp
	FilterHash    hash.Hash
	AdditionsRoot hash.Hash
	RemovalsRoot  hash.Hash
	// TransactionsInfoHash commits to the block's TransactionsInfo.
	TransactionsInfoHash hash.Hash
}

// Hash of the foliage block.
func (f FoliageBlock) Hash() hash.Hash {
	return rlpHash(f)
}

// TransactionsInfo summarizes the transactions of a transaction block.
type TransactionsInfo struct {
	GeneratorHash            hash.Hash
	AggregatedSignature      []byte
	Fees                     uint64
	Cost                     uint64
	RewardClaimsIncorporated []Coin
}

// Hash of the transactions info.
func (t TransactionsInfo) Hash() hash.Hash {
	return rlpHash(t)
}

// Copy returns a deep copy.
func (t TransactionsInfo) Copy() TransactionsInfo {
	cp := t
	cp.AggregatedSignature = common.CopyBytes(t.AggregatedSignature)
	cp.RewardClaimsIncorporated = append([]Coin(nil), t.RewardClaimsIncorporated...)
	return cp
}
