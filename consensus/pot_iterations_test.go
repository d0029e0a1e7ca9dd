package consensus

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/stretchr/testify/require"
)

func TestInfusionIters(t *testing.T) {
	c := FakeNetConstants()
	const ips = 2000
	slotIters := c.SlotIters(ips) // 60000, checkpoints of 1875

	tests := []struct {
		required uint64
		icp      uint64
		ip       uint64
		overflow bool
	}{
		{0, 0, 2000, false},
		{1874, 0, 3874, false},
		{1875, 1875, 3875, false},
		{10000, 9375, 12000, false},
		{57999, 56250, 59999, false},
		{58000, 56250, 0, true},
		{59999, 58125, 1999, true},
	}
	for _, tt := range tests {
		icp, err := CalculateICPIters(c, slotIters, tt.required)
		if err != nil {
			t.Fatalf("%d: %v", tt.required, err)
		}
		ip, err := CalculateIPIters(c, ips, slotIters, tt.required)
		if err != nil {
			t.Fatalf("%d: %v", tt.required, err)
		}
		overflow, err := IsOverflowSubBlock(c, ips, slotIters, tt.required)
		if err != nil {
			t.Fatalf("%d: %v", tt.required, err)
		}
		if icp != tt.icp || ip != tt.ip || overflow != tt.overflow {
			t.Errorf("required %d: got (%d, %d, %v), want (%d, %d, %v)",
				tt.required, icp, ip, overflow, tt.icp, tt.ip, tt.overflow)
		}
	}
}

func TestRequiredItersTooLarge(t *testing.T) {
	c := FakeNetConstants()
	_, err := CalculateICPIters(c, 1000, 1000)
	require.True(t, errors.Is(err, ErrRequiredItersTooLarge))
	_, err = CalculateIPIters(c, 10, 1000, 5000)
	require.True(t, errors.Is(err, ErrRequiredItersTooLarge))
	_, err = IsOverflowSubBlock(c, 10, 1000, 1000)
	require.True(t, errors.Is(err, ErrRequiredItersTooLarge))
}

func TestExtraItersFloor(t *testing.T) {
	c := FakeNetConstants()
	require.Equal(t, uint64(2000), ExtraIters(c, 2000))
	c.Slots.ExtraItersTimeTarget = 0
	require.Equal(t, uint64(1), ExtraIters(c, 2000))
}

func TestExpectedPlotSize(t *testing.T) {
	require.Equal(t, big.NewInt(37<<17), ExpectedPlotSize(18))
	require.Equal(t, int64(1), ExpectedPlotSize(0).Int64())
}

func TestCalculateIterationsQuality(t *testing.T) {
	require := require.New(t)

	var zero, max, half hash.Hash
	for i := range max {
		max[i] = 0xff
	}
	half[0] = 0x80

	// a perfect quality still needs one iteration on top of the floor
	require.Equal(uint64(101), CalculateIterationsQuality(zero, 18, 20, 100))

	// difficulty<<32 / expected plot size, halved for a mid quality
	full := new(big.Int).Lsh(big.NewInt(20), 32)
	full.Div(full, ExpectedPlotSize(18))
	got := CalculateIterationsQuality(half, 18, 20, 100)
	require.InDelta(float64(100+full.Uint64()/2), float64(got), 1)

	// monotonic in quality and difficulty
	require.Less(got, CalculateIterationsQuality(max, 18, 20, 100))
	require.Less(got, CalculateIterationsQuality(half, 18, 40, 100))
	// bigger plots need fewer iterations
	require.Greater(got, CalculateIterationsQuality(half, 20, 20, 100))
}

func qualityOf(x *big.Int) hash.Hash {
	var q hash.Hash
	x.FillBytes(q[:])
	return q
}

func TestCalculateIterationsQualityRoundsUpExactly(t *testing.T) {
	// k=1 plots have 3 expected entries, so difficulty 3 and quality 2^224
	// give exactly one iteration
	exact := new(big.Int).Lsh(big.NewInt(1), 224)
	above := new(big.Int).Add(exact, big.NewInt(1))
	below := new(big.Int).Sub(exact, big.NewInt(1))

	for _, tt := range []struct {
		name    string
		quality *big.Int
		want    uint64
	}{
		{"exact", exact, 101},
		{"just above", above, 102},
		{"just below", below, 101},
		{"twice", new(big.Int).Lsh(exact, 1), 102},
	} {
		if got := CalculateIterationsQuality(qualityOf(tt.quality), 1, 3, 100); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestItersSaturate(t *testing.T) {
	require := require.New(t)
	c := FakeNetConstants()

	require.Equal(uint64(math.MaxUint64), c.SlotIters(math.MaxUint64/2))
	require.Equal(uint64(math.MaxUint64), ExtraIters(c, math.MaxUint64))

	var max hash.Hash
	for i := range max {
		max[i] = 0xff
	}
	require.Equal(uint64(math.MaxUint64), CalculateIterationsQuality(max, 1, math.MaxUint64, 0))
	require.Equal(uint64(math.MaxUint64), CalculateIterationsQuality(max, 18, 1<<20, math.MaxUint64-1))

	overflow, err := IsOverflowSubBlock(c, math.MaxUint64, math.MaxUint64, math.MaxUint64-1)
	require.NoError(err)
	require.True(overflow)
}
