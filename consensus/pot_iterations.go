package consensus

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/shopspring/decimal"
)

// ErrRequiredItersTooLarge is returned when a proof needs a whole slot or more.
var ErrRequiredItersTooLarge = errors.New("required iters do not fit into a slot")

var (
	bigOne      = big.NewInt(1)
	decimalOne  = decimal.NewFromInt(1)
	qualityBase = decimal.NewFromBigInt(new(big.Int).Lsh(bigOne, 256), 0)
	maxIters    = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// mulSat multiplies, saturating at math.MaxUint64.
func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// addSat adds, saturating at math.MaxUint64.
func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// ExtraIters is the gap between the proof's checkpoint and its infusion point.
func ExtraIters(c Constants, ips uint64) uint64 {
	extra := mulSat(ips, c.Slots.ExtraItersTimeTarget)
	if extra == 0 {
		return 1
	}
	return extra
}

// CheckpointIters is the distance between two infusion challenge points.
func CheckpointIters(c Constants, slotIters uint64) uint64 {
	return slotIters / c.Slots.NumCheckpointsPerSlot
}

// CalculateICPIters returns the offset inside the slot of the infusion
// challenge point, the last checkpoint before requiredIters.
func CalculateICPIters(c Constants, slotIters, requiredIters uint64) (uint64, error) {
	if requiredIters >= slotIters {
		return 0, fmt.Errorf("%w: %d >= %d", ErrRequiredItersTooLarge, requiredIters, slotIters)
	}
	cs := CheckpointIters(c, slotIters)
	if cs == 0 {
		return 0, nil
	}
	return requiredIters / cs * cs, nil
}

// CalculateIPIters returns the offset inside the slot of the infusion point.
// For overflow blocks the result wraps into the next slot.
func CalculateIPIters(c Constants, ips, slotIters, requiredIters uint64) (uint64, error) {
	if requiredIters >= slotIters {
		return 0, fmt.Errorf("%w: %d >= %d", ErrRequiredItersTooLarge, requiredIters, slotIters)
	}
	return addSat(requiredIters, ExtraIters(c, ips)) % slotIters, nil
}

// IsOverflowSubBlock reports whether the infusion point falls into the slot
// after the one holding the infusion challenge point.
func IsOverflowSubBlock(c Constants, ips, slotIters, requiredIters uint64) (bool, error) {
	if requiredIters >= slotIters {
		return false, fmt.Errorf("%w: %d >= %d", ErrRequiredItersTooLarge, requiredIters, slotIters)
	}
	return addSat(requiredIters, ExtraIters(c, ips)) >= slotIters, nil
}

// ExpectedPlotSize is the expected number of entries of a plot of size k.
func ExpectedPlotSize(k uint8) *big.Int {
	// (2k + 1) * 2^(k-1)
	size := big.NewInt(2*int64(k) + 1)
	if k == 0 {
		return size
	}
	return size.Lsh(size, uint(k-1))
}

// CalculateIterationsQuality converts a proof quality into the number of
// iterations the proof requires. Better (smaller) qualities and bigger plots
// need fewer iterations. The result is never below minIters+1 and saturates
// at math.MaxUint64.
func CalculateIterationsQuality(quality hash.Hash, size uint8, difficulty, minIters uint64) uint64 {
	q := decimal.NewFromBigInt(new(big.Int).SetBytes(quality.Bytes()), 0)
	d := decimal.NewFromBigInt(new(big.Int).Lsh(new(big.Int).SetUint64(difficulty), 32), 0)
	plot := decimal.NewFromBigInt(ExpectedPlotSize(size), 0)

	// integer quotient and exact remainder, rounded up
	iters, rem := d.Mul(q).QuoRem(qualityBase.Mul(plot), 0)
	if rem.Sign() > 0 {
		iters = iters.Add(decimalOne)
	}
	if iters.LessThan(decimalOne) {
		iters = decimalOne
	}
	if iters.GreaterThan(maxIters) {
		return math.MaxUint64
	}
	return addSat(minIters, iters.BigInt().Uint64())
}
