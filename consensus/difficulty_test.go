package consensus

import (
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/ibr"
)

type testView struct {
	hashes  map[idx.Block]hash.Hash
	records map[hash.Hash]*ibr.SubBlockRecord
}

func (v *testView) GetHashAtHeight(h idx.Block) (hash.Hash, bool) {
	hh, ok := v.hashes[h]
	return hh, ok
}

func (v *testView) GetSubBlockRecord(h hash.Hash) *ibr.SubBlockRecord {
	return v.records[h]
}

// linearChain builds n records where every even block is a transaction block,
// each block adds weight and iters, and blocks are secondsPerBlock apart.
func linearChain(n int, weight, iters, secondsPerBlock uint64) *testView {
	v := &testView{
		hashes:  map[idx.Block]hash.Hash{},
		records: map[hash.Hash]*ibr.SubBlockRecord{},
	}
	for i := 0; i < n; i++ {
		r := &ibr.SubBlockRecord{
			HeaderHash:         hash.Of([]byte{byte(i), byte(i >> 8)}),
			Height:             idx.Block(i),
			Weight:             new(big.Int).SetUint64(uint64(i) * weight),
			TotalIters:         new(big.Int).SetUint64(uint64(i) * iters),
			IsTransactionBlock: i%2 == 0,
		}
		if r.IsTransactionBlock {
			r.Timestamp = inter.Timestamp(1000 + uint64(i)*secondsPerBlock)
		}
		v.hashes[r.Height] = r.HeaderHash
		v.records[r.HeaderHash] = r
	}
	return v
}

func TestNextSlotIters(t *testing.T) {
	a := NewEpochAdjuster(FakeNetConstants())
	require.Equal(t, uint64(60000), a.NextSlotIters(nil, 0, 2000))
}

func TestNextIPSAndDifficulty(t *testing.T) {
	require := require.New(t)
	c := FakeNetConstants()
	a := NewEpochAdjuster(c)

	// 10000 iters and weight 5 every 10 seconds
	view := linearChain(int(c.Epochs.EpochBlocks)+1, 5, 10000, 10)
	tip := c.Epochs.EpochBlocks

	require.Equal(uint64(1000), a.NextIPS(view, tip, 2000))
	// 5 weight per 10 seconds, 15 per 30 second target
	require.Equal(uint64(15), a.NextDifficulty(view, tip, 20))
}

func TestRetargetIsClamped(t *testing.T) {
	require := require.New(t)
	c := FakeNetConstants()
	a := NewEpochAdjuster(c)

	view := linearChain(int(c.Epochs.EpochBlocks)+1, 5, 10000, 10)
	tip := c.Epochs.EpochBlocks

	// measured 1000, can go down by 3 at most
	require.Equal(uint64(100000/3), a.NextIPS(view, tip, 100000))
	// measured 1000, can go up by 3 at most
	require.Equal(uint64(30), a.NextIPS(view, tip, 10))
	// never below one
	require.Equal(uint64(1), a.NextDifficulty(linearChain(40, 0, 1, 10), 32, 2))
}

func TestNextIPSIsCapped(t *testing.T) {
	require := require.New(t)
	c := FakeNetConstants()
	a := NewEpochAdjuster(c)
	a.MaxIPS = 2500

	// 100000 iters per second measured
	view := linearChain(int(c.Epochs.EpochBlocks)+1, 5, 1000000, 10)
	tip := c.Epochs.EpochBlocks

	require.Equal(uint64(2500), a.NextIPS(view, tip, 2000))
	require.Equal(uint64(1000), a.NextIPS(linearChain(int(tip)+1, 5, 10000, 10), tip, 2000))

	a.MaxIPS = 0
	require.Equal(uint64(6000), a.NextIPS(view, tip, 2000))
}

func TestRetargetWithoutElapsedTime(t *testing.T) {
	require := require.New(t)
	a := NewEpochAdjuster(FakeNetConstants())

	view := linearChain(1, 5, 10000, 10)
	require.Equal(uint64(2000), a.NextIPS(view, 0, 2000))
	require.Equal(uint64(20), a.NextDifficulty(view, 0, 20))
}

func TestWindowSkipsNonTransactionBlocks(t *testing.T) {
	require := require.New(t)
	c := FakeNetConstants()
	a := NewEpochAdjuster(c)

	view := linearChain(int(c.Epochs.EpochBlocks)+2, 5, 10000, 10)
	first, last := a.window(view, c.Epochs.EpochBlocks+1)
	// block 1 and block 33 have no timestamp, the window falls back to 0 and 32
	require.Equal(idx.Block(0), first.Height)
	require.Equal(idx.Block(32), last.Height)
}
