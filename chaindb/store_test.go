package chaindb

import (
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/ier"
)

func testBlock(height idx.Block) *inter.Block {
	return &inter.Block{
		RewardChainSubBlock: inter.RewardChainSubBlock{
			Height:     height,
			Weight:     big.NewInt(int64(height) * 10),
			TotalIters: big.NewInt(int64(height)*1000 + 1),
			Deficit:    5,
			IsBlock:    true,
		},
		FoliageSubBlock: inter.FoliageSubBlock{PrevSubBlockHash: hash.Of([]byte{byte(height)})},
		FoliageBlock:    &inter.FoliageBlock{Timestamp: inter.Timestamp(1000 + height)},
	}
}

func openTest(t *testing.T, cacheSize int) *Store {
	s, err := Open("", cacheSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlocksAndRecords(t *testing.T) {
	require := require.New(t)
	s := openTest(t, 2)

	for h := idx.Block(0); h < 5; h++ {
		b := testBlock(h)
		r, err := s.PutBlock(b)
		require.NoError(err)
		require.Equal(b.HeaderHash(), r.HeaderHash)
		require.NoError(s.SetHashAtHeight(h, b.HeaderHash()))
	}

	// cache of 2 forces reads from badger
	for h := idx.Block(0); h < 5; h++ {
		want := testBlock(h)
		hh, ok := s.GetHashAtHeight(h)
		require.True(ok)
		require.Equal(want.HeaderHash(), hh)

		r := s.GetSubBlockRecord(hh)
		require.NotNil(r)
		require.Equal(h, r.Height)
		require.Equal(want.Weight(), r.Weight)
		require.True(r.IsTransactionBlock)

		got := s.GetBlock(hh)
		require.NotNil(got)
		require.Equal(want.HeaderHash(), got.HeaderHash())
	}

	_, ok := s.GetHashAtHeight(5)
	require.False(ok)
	require.Nil(s.GetSubBlockRecord(hash.Of([]byte("nope"))))
	require.Nil(s.GetBlock(hash.Of([]byte("nope"))))
}

func TestHeightIndexIsAppendOnly(t *testing.T) {
	require := require.New(t)
	s := openTest(t, 16)

	a, b := testBlock(1), testBlock(2)
	require.NoError(s.SetHashAtHeight(1, a.HeaderHash()))
	require.NoError(s.SetHashAtHeight(1, a.HeaderHash()))
	require.ErrorIs(s.SetHashAtHeight(1, b.HeaderHash()), ErrHeightTaken)
}

func TestSubEpochSummaries(t *testing.T) {
	require := require.New(t)
	s := openTest(t, 16)

	sum := ier.SubEpochSummary{RewardChainHash: hash.Of([]byte("rc")), NewDifficulty: 7}
	require.NoError(s.PutSubEpochSummary(ier.IdxSubEpochSummary{SubEpochSummary: sum, Idx: 3}))

	got := s.GetSubEpochSummary(3)
	require.NotNil(got)
	require.Equal(sum.Hash(), got.Hash())
	require.Nil(s.GetSubEpochSummary(4))
}

func TestCommitBlockIsAtomic(t *testing.T) {
	require := require.New(t)
	s := openTest(t, 16)

	a := testBlock(1)
	sum := ier.IdxSubEpochSummary{SubEpochSummary: ier.SubEpochSummary{NewIPS: 9}, Idx: 0}
	r, err := s.CommitBlock(a, &sum)
	require.NoError(err)
	require.Equal(a.HeaderHash(), r.HeaderHash)
	hh, ok := s.GetHashAtHeight(1)
	require.True(ok)
	require.Equal(a.HeaderHash(), hh)
	require.NotNil(s.GetBlock(hh))
	require.NotNil(s.GetSubEpochSummary(0))

	// another block at the same height writes nothing
	other := testBlock(1)
	other.FoliageSubBlock.PrevSubBlockHash = hash.Of([]byte("fork"))
	require.NotEqual(a.HeaderHash(), other.HeaderHash())
	next := ier.IdxSubEpochSummary{Idx: 1}
	_, err = s.CommitBlock(other, &next)
	require.ErrorIs(err, ErrHeightTaken)
	require.Nil(s.GetBlock(other.HeaderHash()))
	require.Nil(s.GetSubBlockRecord(other.HeaderHash()))
	require.Nil(s.GetSubEpochSummary(1))
	hh, _ = s.GetHashAtHeight(1)
	require.Equal(a.HeaderHash(), hh)

	// committing the same block again is a no-op on the index
	_, err = s.CommitBlock(a, nil)
	require.NoError(err)
}

var _ consensus.ChainView = (*Store)(nil)
