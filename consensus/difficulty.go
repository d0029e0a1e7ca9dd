package consensus

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-spacetime/inter/ibr"
)

// ChainView is the read-only access to accepted blocks that difficulty
// adjustment needs. Both mappings are append-only.
type ChainView interface {
	// GetHashAtHeight returns the header hash of the main chain block at height.
	GetHashAtHeight(height idx.Block) (hash.Hash, bool)
	// GetSubBlockRecord returns the record of a block, nil if unknown.
	GetSubBlockRecord(h hash.Hash) *ibr.SubBlockRecord
}

// DifficultyAdjuster recomputes the retargeted parameters.
type DifficultyAdjuster interface {
	// NextSlotIters is evaluated after every block.
	NextSlotIters(view ChainView, tip idx.Block, ips uint64) uint64
	// NextDifficulty is evaluated at epoch boundaries.
	NextDifficulty(view ChainView, tip idx.Block, current uint64) uint64
	// NextIPS is evaluated at epoch boundaries.
	NextIPS(view ChainView, tip idx.Block, current uint64) uint64
}

// EpochAdjuster retargets from the last epoch worth of transaction blocks,
// the only ones carrying a timestamp. A single retarget is bounded by
// DifficultyFactor.
type EpochAdjuster struct {
	Constants Constants
	// MaxIPS, if set, is the speed of the fastest known VDF. Measured speeds
	// above it come from timestamps and not from iterations, so they are
	// capped.
	MaxIPS uint64
}

// NewEpochAdjuster returns the default adjuster for c.
func NewEpochAdjuster(c Constants) *EpochAdjuster {
	return &EpochAdjuster{Constants: c}
}

// NextSlotIters keeps the slot at SlotTimeTarget seconds.
func (a *EpochAdjuster) NextSlotIters(_ ChainView, _ idx.Block, ips uint64) uint64 {
	return a.Constants.SlotIters(ips)
}

// NextDifficulty aims at one challenge block weight per BlockTimeTarget.
func (a *EpochAdjuster) NextDifficulty(view ChainView, tip idx.Block, current uint64) uint64 {
	first, last := a.window(view, tip)
	if first == nil || last == nil || last.Timestamp <= first.Timestamp {
		return current
	}
	dt := new(big.Int).SetUint64(uint64(last.Timestamp - first.Timestamp))
	dw := new(big.Int).Sub(last.Weight, first.Weight)
	next := dw.Mul(dw, new(big.Int).SetUint64(a.Constants.Epochs.BlockTimeTarget))
	next.Div(next, dt)
	return a.clamp(next, current)
}

// NextIPS measures the speed of the VDF over the window.
func (a *EpochAdjuster) NextIPS(view ChainView, tip idx.Block, current uint64) uint64 {
	first, last := a.window(view, tip)
	if first == nil || last == nil || last.Timestamp <= first.Timestamp {
		return current
	}
	dt := new(big.Int).SetUint64(uint64(last.Timestamp - first.Timestamp))
	di := new(big.Int).Sub(last.TotalIters, first.TotalIters)
	next := a.clamp(di.Div(di, dt), current)
	if a.MaxIPS != 0 && next > a.MaxIPS {
		next = a.MaxIPS
	}
	return next
}

func (a *EpochAdjuster) clamp(next *big.Int, current uint64) uint64 {
	f := a.Constants.Epochs.DifficultyFactor
	lo := current / f
	if lo == 0 {
		lo = 1
	}
	hi := new(big.Int).Mul(new(big.Int).SetUint64(current), new(big.Int).SetUint64(f))
	if next.Cmp(hi) > 0 {
		next = hi
	}
	if !next.IsUint64() {
		return current
	}
	v := next.Uint64()
	if v < lo {
		v = lo
	}
	return v
}

// window returns the transaction blocks closest to both ends of the last
// epoch ending at tip.
func (a *EpochAdjuster) window(view ChainView, tip idx.Block) (first, last *ibr.SubBlockRecord) {
	start := idx.Block(0)
	if tip > a.Constants.Epochs.EpochBlocks {
		start = tip - a.Constants.Epochs.EpochBlocks
	}
	return lastTransactionBlock(view, start), lastTransactionBlock(view, tip)
}

// lastTransactionBlock walks back from height to the nearest transaction block.
func lastTransactionBlock(view ChainView, height idx.Block) *ibr.SubBlockRecord {
	for h := int64(height); h >= 0; h-- {
		hh, ok := view.GetHashAtHeight(idx.Block(h))
		if !ok {
			continue
		}
		r := view.GetSubBlockRecord(hh)
		if r != nil && r.IsTransactionBlock {
			return r
		}
	}
	return nil
}
