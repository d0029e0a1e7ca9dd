package vdf

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-spacetime/inter"
)

type shortProver struct{}

func (shortProver) Prove(context.Context, hash.Hash, *big.Int, *big.Int, uint32, uint64) ([]byte, error) {
	return []byte{1, 2, 3}, nil
}

type failingProver struct{ err error }

func (p failingProver) Prove(context.Context, hash.Hash, *big.Int, *big.Int, uint32, uint64) ([]byte, error) {
	return nil, p.err
}

func TestIntSize(t *testing.T) {
	require.Equal(t, 65, IntSize(1024))
	require.Equal(t, 1, IntSize(0))
}

func TestBuildSegmentDeterministic(t *testing.T) {
	require := require.New(t)
	b := NewBuilder(1024, HashProver{})
	challenge := hash.Of([]byte("challenge"))

	info1, proof1, err := b.BuildSegment(context.Background(), challenge, inter.DefaultClassgroupElement(), 1000)
	require.NoError(err)
	info2, proof2, err := b.BuildSegment(context.Background(), challenge, inter.DefaultClassgroupElement(), 1000)
	require.NoError(err)

	require.Equal(proof1.Witness, proof2.Witness)
	require.Equal(info1.Hash(), info2.Hash())
	require.Equal(inter.WitnessTypeHash, proof1.WitnessType)
	require.Equal(info1.Output.Hash().Bytes(), proof1.Witness)
	require.Equal(challenge, info1.Challenge)
	require.Equal(uint64(1000), info1.NumberOfIterations)

	info3, _, err := b.BuildSegment(context.Background(), challenge, inter.DefaultClassgroupElement(), 1001)
	require.NoError(err)
	require.False(info1.Output.Equal(info3.Output))

	info4, _, err := b.BuildSegment(context.Background(), challenge, info1.Output, 1000)
	require.NoError(err)
	require.False(info1.Output.Equal(info4.Output))
}

func TestMalformedProof(t *testing.T) {
	b := NewBuilder(1024, shortProver{})
	_, _, err := b.BuildSegment(context.Background(), hash.Hash{}, inter.DefaultClassgroupElement(), 1)
	require.True(t, errors.Is(err, ErrMalformedProof))
}

func TestBuildSegmentCancelled(t *testing.T) {
	b := NewBuilder(1024, HashProver{Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := b.BuildSegment(ctx, hash.Hash{}, inter.DefaultClassgroupElement(), 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, time.Since(start) < 10*time.Second)
}

func testPlan(kind inter.BlockKind) SegmentPlan {
	return SegmentPlan{
		Kind: kind,
		ChallengeChain: ChainPlan{
			Prior:        inter.DefaultClassgroupElement(),
			ICPChallenge: hash.Of([]byte("cc")),
			ICPIters:     100,
			IPChallenge:  hash.Of([]byte("cc")),
			IPIters:      300,
		},
		RewardChain: ChainPlan{
			Prior:        inter.DefaultClassgroupElement(),
			ICPChallenge: hash.Of([]byte("rc")),
			ICPIters:     100,
			IPChallenge:  hash.Of([]byte("rc")),
			IPIters:      300,
		},
	}
}

func TestBuildChains(t *testing.T) {
	require := require.New(t)
	b := NewBuilder(1024, HashProver{})

	full, err := b.BuildChains(context.Background(), testPlan(inter.ChallengeBlock))
	require.NoError(err)
	require.NotNil(full.ChallengeChainIP)
	require.Equal(uint64(300), full.ChallengeChainIP.Info.NumberOfIterations)
	require.Equal(uint64(100), full.RewardChainICP.Info.NumberOfIterations)
	require.False(full.ChallengeChainICP.Info.Output.Equal(full.RewardChainICP.Info.Output))

	cont, err := b.BuildChains(context.Background(), testPlan(inter.Continuation))
	require.NoError(err)
	require.Nil(cont.ChallengeChainIP)
	require.Equal(full.RewardChainIP.Info.Hash(), cont.RewardChainIP.Info.Hash())
}

func TestBuildChainsICPPrior(t *testing.T) {
	require := require.New(t)
	b := NewBuilder(1024, HashProver{})
	ctx := context.Background()

	plan := testPlan(inter.ChallengeBlock)
	before := inter.ClassgroupElement{A: big.NewInt(11), B: big.NewInt(-3)}
	plan.ChallengeChain.ICPPrior = &before
	plan.RewardChain.ICPPrior = &before

	got, err := b.BuildChains(ctx, plan)
	require.NoError(err)

	cc := plan.ChallengeChain
	icp, _, err := b.BuildSegment(ctx, cc.ICPChallenge, before, cc.ICPIters)
	require.NoError(err)
	require.Equal(icp.Hash(), got.ChallengeChainICP.Info.Hash())
	ip, _, err := b.BuildSegment(ctx, cc.IPChallenge, cc.Prior, cc.IPIters)
	require.NoError(err)
	require.Equal(ip.Hash(), got.ChallengeChainIP.Info.Hash())

	rc := plan.RewardChain
	icp, _, err = b.BuildSegment(ctx, rc.ICPChallenge, before, rc.ICPIters)
	require.NoError(err)
	require.Equal(icp.Hash(), got.RewardChainICP.Info.Hash())

	plain, err := b.BuildChains(ctx, testPlan(inter.ChallengeBlock))
	require.NoError(err)
	require.NotEqual(plain.ChallengeChainICP.Info.Hash(), got.ChallengeChainICP.Info.Hash())
	require.Equal(plain.RewardChainIP.Info.Hash(), got.RewardChainIP.Info.Hash())
}

func TestBuildChainsFailure(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder(1024, failingProver{boom})
	_, err := b.BuildChains(context.Background(), testPlan(inter.ChallengeBlock))
	require.ErrorIs(t, err, boom)
}

func TestBuildEndOfSlot(t *testing.T) {
	require := require.New(t)
	b := NewBuilder(1024, HashProver{})

	plan := EndOfSlotPlan{
		ChallengeChainChallenge: hash.Of([]byte("cc")),
		ChallengeChainPrior:     inter.DefaultClassgroupElement(),
		RewardChainChallenge:    hash.Of([]byte("rc")),
		RewardChainPrior:        inter.DefaultClassgroupElement(),
		SlotIters:               60000,
		Deficit:                 3,
	}
	bundle, err := b.BuildEndOfSlot(context.Background(), plan)
	require.NoError(err)
	require.Equal(plan.ChallengeChainChallenge, bundle.ChallengeChain.PrevSlotChallenge)
	require.Equal(bundle.ChallengeChain.Hash(), bundle.RewardChain.ChallengeSlotHash)
	require.Equal(uint8(3), bundle.RewardChain.Deficit)
	require.Equal(uint64(60000), bundle.ChallengeChain.EndOfSlotVDF.NumberOfIterations)
	require.Equal(bundle.ChallengeChain.EndOfSlotVDF.Output.Hash().Bytes(), bundle.Proofs.ChallengeChainSlotProof.Witness)
}
