package vdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/rony4d/go-spacetime/inter"
)

// ErrMalformedProof is returned when the prover output has the wrong size.
var ErrMalformedProof = errors.New("malformed VDF output")

// Segment is one computed VDF with its proof.
type Segment struct {
	Info  inter.VDFInfo
	Proof inter.VDFProof
}

// ChainPlan describes the two segments of one chain for a block. Both start
// from Prior unless ICPPrior is set.
type ChainPlan struct {
	Prior inter.ClassgroupElement
	// ICPPrior is the start of the icp segment when it lies in an earlier
	// slot than the infusion point.
	ICPPrior *inter.ClassgroupElement

	ICPChallenge hash.Hash
	ICPIters     uint64
	IPChallenge  hash.Hash
	IPIters      uint64
}

func (p ChainPlan) icpPrior() inter.ClassgroupElement {
	if p.ICPPrior != nil {
		return *p.ICPPrior
	}
	return p.Prior
}

// SegmentPlan describes all segments of a block.
type SegmentPlan struct {
	// Kind decides whether the challenge chain infusion point is computed.
	Kind           inter.BlockKind
	ChallengeChain ChainPlan
	RewardChain    ChainPlan
}

// Segments are the outputs of a SegmentPlan.
type Segments struct {
	ChallengeChainICP Segment
	// ChallengeChainIP is nil for continuation blocks.
	ChallengeChainIP *Segment
	RewardChainICP   Segment
	RewardChainIP    Segment
}

// Builder turns plans into segments.
type Builder struct {
	discBits uint32
	prover   Prover

	Log log.Logger
}

// NewBuilder uses prover on a class group of discBits bits.
func NewBuilder(discBits uint32, prover Prover) *Builder {
	return &Builder{
		discBits: discBits,
		prover:   prover,
		Log:      log.New("module", "vdf"),
	}
}

type proveResult struct {
	out []byte
	err error
}

// prove runs the prover as a cancellable task.
func (b *Builder) prove(ctx context.Context, challenge hash.Hash, prior inter.ClassgroupElement, iters uint64) ([]byte, error) {
	done := make(chan proveResult, 1)
	go func() {
		out, err := b.prover.Prove(ctx, challenge, prior.A, prior.B, b.discBits, iters)
		done <- proveResult{out, err}
	}()
	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BuildSegment runs iters iterations from prior on the group of challenge.
func (b *Builder) BuildSegment(ctx context.Context, challenge hash.Hash, prior inter.ClassgroupElement, iters uint64) (inter.VDFInfo, inter.VDFProof, error) {
	raw, err := b.prove(ctx, challenge, prior, iters)
	if err != nil {
		return inter.VDFInfo{}, inter.VDFProof{}, err
	}
	size := IntSize(b.discBits)
	if len(raw) != 2*size {
		return inter.VDFInfo{}, inter.VDFProof{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedProof, len(raw), 2*size)
	}
	output := inter.ClassgroupElement{
		A: inter.FromSignedBytes(raw[:size]),
		B: inter.FromSignedBytes(raw[size:]),
	}
	info := inter.VDFInfo{
		Challenge:          challenge,
		NumberOfIterations: iters,
		Output:             output,
	}
	witness := output.Hash()
	return info, inter.VDFProof{WitnessType: inter.WitnessTypeHash, Witness: witness.Bytes()}, nil
}

func (b *Builder) segment(ctx context.Context, challenge hash.Hash, prior inter.ClassgroupElement, iters uint64) (Segment, error) {
	info, proof, err := b.BuildSegment(ctx, challenge, prior, iters)
	return Segment{Info: info, Proof: proof}, err
}

// BuildChains computes the segments of a block. The challenge chain and the
// reward chain run concurrently; the first failure cancels the other one.
func (b *Builder) BuildChains(ctx context.Context, plan SegmentPlan) (Segments, error) {
	var res Segments
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cc := plan.ChallengeChain
		var err error
		res.ChallengeChainICP, err = b.segment(ctx, cc.ICPChallenge, cc.icpPrior(), cc.ICPIters)
		if err != nil {
			return fmt.Errorf("challenge chain icp: %w", err)
		}
		if plan.Kind != inter.ChallengeBlock {
			return nil
		}
		ip, err := b.segment(ctx, cc.IPChallenge, cc.Prior, cc.IPIters)
		if err != nil {
			return fmt.Errorf("challenge chain ip: %w", err)
		}
		res.ChallengeChainIP = &ip
		return nil
	})
	g.Go(func() error {
		rc := plan.RewardChain
		var err error
		res.RewardChainICP, err = b.segment(ctx, rc.ICPChallenge, rc.icpPrior(), rc.ICPIters)
		if err != nil {
			return fmt.Errorf("reward chain icp: %w", err)
		}
		res.RewardChainIP, err = b.segment(ctx, rc.IPChallenge, rc.Prior, rc.IPIters)
		if err != nil {
			return fmt.Errorf("reward chain ip: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Segments{}, err
	}
	b.Log.Trace("Built VDF segments", "kind", plan.Kind, "cc_icp", plan.ChallengeChain.ICPIters, "rc_ip", plan.RewardChain.IPIters)
	return res, nil
}

// EndOfSlotPlan describes the VDFs that close a slot.
type EndOfSlotPlan struct {
	ChallengeChainChallenge hash.Hash
	ChallengeChainPrior     inter.ClassgroupElement
	RewardChainChallenge    hash.Hash
	RewardChainPrior        inter.ClassgroupElement
	SlotIters               uint64
	Deficit                 uint8
}

// BuildEndOfSlot runs both chains to the end of the slot.
func (b *Builder) BuildEndOfSlot(ctx context.Context, plan EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
	var cc, rc Segment
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cc, err = b.segment(ctx, plan.ChallengeChainChallenge, plan.ChallengeChainPrior, plan.SlotIters)
		return err
	})
	g.Go(func() error {
		var err error
		rc, err = b.segment(ctx, plan.RewardChainChallenge, plan.RewardChainPrior, plan.SlotIters)
		return err
	})
	if err := g.Wait(); err != nil {
		return inter.EndOfSlotBundle{}, fmt.Errorf("end of slot: %w", err)
	}

	slot := inter.ChallengeSlot{
		PrevSlotChallenge: plan.ChallengeChainChallenge,
		EndOfSlotVDF:      cc.Info,
	}
	return inter.EndOfSlotBundle{
		ChallengeChain: slot,
		RewardChain: inter.RewardChainEndOfSlot{
			EndOfSlotVDF:      rc.Info,
			ChallengeSlotHash: slot.Hash(),
			Deficit:           plan.Deficit,
		},
		Proofs: inter.EndOfSlotProofs{
			ChallengeChainSlotProof: cc.Proof,
			RewardChainSlotProof:    rc.Proof,
		},
	}, nil
}
