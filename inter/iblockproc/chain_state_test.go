package iblockproc

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-spacetime/chaindb"
	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/vdf"
)

func newTestState(t *testing.T) *ChainState {
	store, err := chaindb.Open("", 64)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	c := consensus.FakeNetConstants()
	return NewChainState(c, store, consensus.NewEpochAdjuster(c))
}

func output(n int64) inter.ClassgroupElement {
	return inter.ClassgroupElement{A: big.NewInt(n), B: big.NewInt(-n)}
}

// nextBlock builds a block that passes the extension checks.
func nextBlock(s *ChainState, kind inter.BlockKind, iters int64, tx bool) *inter.Block {
	height := s.NextHeight()
	deficit, _ := NextDeficit(s.Constants(), s.Deficit(), kind)
	rc := inter.RewardChainSubBlock{
		Height:           height,
		Weight:           s.NextWeight(kind),
		TotalIters:       new(big.Int).Add(s.TotalIters(), big.NewInt(iters)),
		Deficit:          deficit,
		IsBlock:          kind == inter.ChallengeBlock,
		RewardChainIPVDF: inter.VDFInfo{Output: output(int64(height) + 1)},
	}
	if kind == inter.ChallengeBlock {
		rc.ChallengeChainIPVDF = &inter.VDFInfo{Output: output(int64(height) + 100)}
	}
	b := &inter.Block{
		RewardChainSubBlock: rc,
		FoliageSubBlock: inter.FoliageSubBlock{
			PrevSubBlockHash: s.Tip(),
			Data: inter.FoliageSubBlockData{
				PoolTarget:             inter.PoolTarget{PuzzleHash: hash.Of([]byte("pool")), MaxHeight: height},
				FarmerRewardPuzzleHash: hash.Of([]byte("farmer")),
			},
		},
	}
	if tx {
		b.FoliageBlock = &inter.FoliageBlock{Timestamp: inter.Timestamp(1000 + height)}
		b.TransactionsInfo = &inter.TransactionsInfo{}
	}
	return b
}

func TestAdvanceDeficitAndWeight(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	require.True(s.Empty())
	require.Equal(inter.ChallengeBlock, inter.KindFromDeficit(s.Deficit()))

	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, 1000, true)))
	require.Equal(idx.Block(0), s.Height())
	require.Equal(uint8(5), s.Deficit())
	require.Equal(int64(20), s.Weight().Int64())

	for want := 4; want >= 0; want-- {
		kind := inter.KindFromDeficit(s.Deficit())
		require.Equal(inter.Continuation, kind)
		require.NoError(s.Advance(nextBlock(s, kind, 1000, false)))
		require.Equal(uint8(want), s.Deficit())
		require.Equal(int64(20), s.Weight().Int64())
	}

	before := s.Hash()
	err := s.Advance(nextBlock(s, inter.Continuation, 1000, false))
	require.True(errors.Is(err, ErrInvalidExtension))
	require.Equal(before, s.Hash())

	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, 1000, true)))
	require.Equal(uint8(5), s.Deficit())
	require.Equal(int64(40), s.Weight().Int64())
	require.Equal(idx.Block(6), s.Height())

	hh, ok := s.Store().GetHashAtHeight(6)
	require.True(ok)
	require.Equal(s.Tip(), hh)
}

func TestAdvanceRejects(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, 1000, true)))
	before := s.Hash()

	for name, mutate := range map[string]func(b *inter.Block){
		"iters not increasing": func(b *inter.Block) {
			b.RewardChainSubBlock.TotalIters = s.TotalIters()
		},
		"weight decreasing": func(b *inter.Block) {
			b.RewardChainSubBlock.Weight = big.NewInt(1)
		},
		"weight without challenge": func(b *inter.Block) {
			b.RewardChainSubBlock.Weight = big.NewInt(1000)
		},
		"wrong parent": func(b *inter.Block) {
			b.FoliageSubBlock.PrevSubBlockHash = hash.Of([]byte("other"))
		},
		"wrong height": func(b *inter.Block) {
			b.RewardChainSubBlock.Height = 7
		},
		"wrong deficit": func(b *inter.Block) {
			b.RewardChainSubBlock.Deficit = 5
		},
		"info without foliage block": func(b *inter.Block) {
			b.TransactionsInfo = &inter.TransactionsInfo{}
		},
	} {
		b := nextBlock(s, inter.Continuation, 1000, false)
		mutate(b)
		err := s.Advance(b)
		require.True(errors.Is(err, ErrInvalidExtension), name)
		require.Equal(before, s.Hash(), name)
	}
}

func TestPendingRewards(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)

	genesis := nextBlock(s, inter.ChallengeBlock, 1000, true)
	require.NoError(s.Advance(genesis))
	require.Len(s.PendingRewards(), 2)
	require.Equal(genesis.TotalIters(), s.PrevTxTotalIters())
	require.Equal(genesis.FoliageBlock.Hash(), s.PrevFoliageBlockHash())

	require.NoError(s.Advance(nextBlock(s, inter.Continuation, 1000, false)))
	require.Len(s.PendingRewards(), 4)
	require.Equal(genesis.TotalIters(), s.PrevTxTotalIters())
	require.Equal(genesis.HeaderHash(), s.PrevTxBlockHash())

	tx := nextBlock(s, inter.Continuation, 1000, true)
	require.NoError(s.Advance(tx))
	pending := s.PendingRewards()
	require.Len(pending, 2)
	pool, farmer := RewardCoins(tx)
	require.Equal([]inter.Coin{pool, farmer}, pending)
	require.Equal(tx.HeaderHash(), s.PrevTxBlockHash())
}

func TestCopyIsolation(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, 1000, true)))

	cp := s.Copy()
	require.Equal(s.Hash(), cp.Hash())

	require.NoError(cp.Advance(nextBlock(cp, inter.Continuation, 500, false)))
	require.NotEqual(s.Hash(), cp.Hash())
	require.Equal(idx.Block(0), s.Height())
	require.Equal(int64(1000), s.TotalIters().Int64())
	require.Len(s.PendingRewards(), 2)
}

func TestOnNewBlockSlotCrossing(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	slot := s.SlotIters()

	calls := 0
	endOfSlot := func(plan vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
		calls++
		require.Equal(slot, plan.SlotIters)
		cc := inter.ChallengeSlot{PrevSlotChallenge: plan.ChallengeChainChallenge}
		return inter.EndOfSlotBundle{
			ChallengeChain: cc,
			RewardChain: inter.RewardChainEndOfSlot{
				EndOfSlotVDF:      inter.VDFInfo{Challenge: plan.RewardChainChallenge, Output: output(7)},
				ChallengeSlotHash: cc.Hash(),
				Deficit:           plan.Deficit,
			},
		}, nil
	}

	ev, err := OnNewBlock(s, 0, endOfSlot)
	require.NoError(err)
	require.False(ev.SlotEnded)
	require.Equal(0, calls)

	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, int64(slot)+1, true)))
	first := s.Challenges()
	ccBefore, rcBefore := s.CCPrior(), s.RCPrior()

	ev, err = OnNewBlock(s, 1, endOfSlot)
	require.NoError(err)
	require.True(ev.SlotEnded)
	require.Equal(1, calls)
	require.Len(s.FinishedSlots(), 1)
	require.Equal(uint64(1), s.NumberIters())

	rotated := s.Challenges()
	require.Equal(first.CC, rotated.PrevCC)
	require.Equal(first.RC, rotated.PrevRC)
	require.Equal(s.FinishedSlots()[0].ChallengeChain.Hash(), rotated.CC)
	require.True(s.CCPrior().Equal(inter.DefaultClassgroupElement()))
	require.True(s.RCPrior().Equal(output(7)))
	require.True(s.PrevCCPrior().Equal(ccBefore))
	require.True(s.PrevRCPrior().Equal(rcBefore))
	require.False(ccBefore.Equal(inter.DefaultClassgroupElement()))

	b := nextBlock(s, inter.Continuation, 10, false)
	b.FinishedSlots = s.FinishedSlots()
	require.NoError(s.Advance(b))
	require.Empty(s.FinishedSlots())
	require.Equal(uint64(11), s.NumberIters())
}

func TestOnNewBlockMultipleCrossingsOneAtATime(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	slot := s.SlotIters()
	require.NoError(s.Advance(nextBlock(s, inter.ChallengeBlock, int64(3*slot), true)))

	endOfSlot := func(plan vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
		return inter.EndOfSlotBundle{ChallengeChain: inter.ChallengeSlot{PrevSlotChallenge: plan.ChallengeChainChallenge}}, nil
	}
	_, err := OnNewBlock(s, 1, endOfSlot)
	require.NoError(err)
	require.Len(s.FinishedSlots(), 1)
	require.Equal(2*slot, s.NumberIters())
}

func TestOnNewBlockEpochs(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	never := func(vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
		t.Fatal("no slot should end")
		return inter.EndOfSlotBundle{}, nil
	}
	c := s.Constants()

	for _, tt := range []struct {
		height   idx.Block
		subEpoch bool
		epoch    bool
	}{
		{0, false, false},
		{1, false, false},
		{c.Epochs.SubEpochBlocks, true, false},
		{2 * c.Epochs.SubEpochBlocks, true, false},
		{c.Epochs.EpochBlocks - 1, false, false},
		{c.Epochs.EpochBlocks, true, true},
	} {
		prevSummary := s.Vars().LastSubEpochSummary
		ev, err := OnNewBlock(s, tt.height, never)
		require.NoError(err)
		require.Equal(tt.subEpoch, ev.SubEpochEnded, tt.height)
		require.Equal(tt.epoch, ev.EpochEnded, tt.height)
		if !tt.subEpoch {
			require.Nil(ev.Summary)
			continue
		}
		require.NotNil(ev.Summary)
		require.Equal(prevSummary, ev.Summary.PrevSubEpochSummaryHash)
		require.Equal(tt.epoch, ev.Summary.EndsEpoch())
		require.Equal(ev.Summary.Hash(), s.Vars().LastSubEpochSummary)
	}
	require.Equal(idx.Epoch(3), s.SubEpoch())
	require.Equal(idx.Epoch(1), s.Epoch())
	// no transaction blocks recorded: parameters are kept
	require.Equal(c.Difficulty.DifficultyStarting, s.Difficulty())
	require.Equal(c.Difficulty.IPSStarting, s.IPS())
}

func TestAdvanceCommitsSummaryWithBlock(t *testing.T) {
	require := require.New(t)
	s := newTestState(t)
	store := s.Store().(*chaindb.Store)
	never := func(vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
		t.Fatal("no slot should end")
		return inter.EndOfSlotBundle{}, nil
	}
	c := s.Constants()

	for h := idx.Block(0); h < c.Epochs.SubEpochBlocks; h++ {
		_, err := OnNewBlock(s, h, never)
		require.NoError(err)
		require.NoError(s.Advance(nextBlock(s, inter.KindFromDeficit(s.Deficit()), 10, true)))
	}

	ev, err := OnNewBlock(s, c.Epochs.SubEpochBlocks, never)
	require.NoError(err)
	require.NotNil(ev.Summary)
	require.Nil(store.GetSubEpochSummary(ev.Summary.Idx))

	bad := nextBlock(s, inter.KindFromDeficit(s.Deficit()), 10, true)
	bad.RewardChainSubBlock.Height++
	require.ErrorIs(s.Advance(bad), ErrInvalidExtension)
	require.Nil(store.GetSubEpochSummary(ev.Summary.Idx))

	b := nextBlock(s, inter.KindFromDeficit(s.Deficit()), 10, true)
	require.NoError(s.Advance(b))
	sum := store.GetSubEpochSummary(ev.Summary.Idx)
	require.NotNil(sum)
	require.Equal(ev.Summary.Hash(), sum.Hash())
	require.NotNil(store.GetBlock(b.HeaderHash()))
}
