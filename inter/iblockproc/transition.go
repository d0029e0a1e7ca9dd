package iblockproc

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/ier"
	"github.com/rony4d/go-spacetime/vdf"
)

// EndOfSlotFunc computes the VDFs closing a slot.
type EndOfSlotFunc func(plan vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error)

// SlotEvent reports what OnNewBlock changed.
type SlotEvent struct {
	SlotEnded     bool
	SubEpochEnded bool
	EpochEnded    bool
	// Difficulty and IPS in force for the next block.
	Difficulty uint64
	IPS        uint64
	// Summary is set when a sub-epoch ended. It is persisted by Advance
	// together with the block at height.
	Summary *ier.IdxSubEpochSummary
}

// OnNewBlock prepares s for the block at height: it closes the running slot
// if the tip went past it and handles sub-epoch and epoch boundaries.
// At most one slot is closed per call.
func OnNewBlock(s *ChainState, height idx.Block, endOfSlot EndOfSlotFunc) (SlotEvent, error) {
	v := &s.vars
	var ev SlotEvent
	s.summary = nil

	if v.NumberIters > v.SlotIters {
		bundle, err := endOfSlot(vdf.EndOfSlotPlan{
			ChallengeChainChallenge: v.Slot.CC,
			ChallengeChainPrior:     v.CCPrior.Copy(),
			RewardChainChallenge:    v.Slot.RC,
			RewardChainPrior:        v.RCPrior.Copy(),
			SlotIters:               v.SlotIters,
			Deficit:                 v.Deficit,
		})
		if err != nil {
			return SlotEvent{}, err
		}
		v.FinishedSlots = append(v.FinishedSlots, bundle)
		v.NumberIters -= v.SlotIters
		v.PrevCCPrior, v.PrevRCPrior = v.CCPrior, v.RCPrior
		v.Slot = SlotChallenges{
			CC:     bundle.ChallengeChain.Hash(),
			RC:     bundle.RewardChain.Hash(),
			PrevCC: v.Slot.CC,
			PrevRC: v.Slot.RC,
		}
		v.CCPrior = inter.DefaultClassgroupElement()
		v.RCPrior = bundle.RewardChain.EndOfSlotVDF.Output.Copy()
		ev.SlotEnded = true
		s.Log.Debug("Slot ended", "height", height, "challenge", v.Slot.CC.String(), "left", v.NumberIters)
	}

	c := s.constants.Epochs
	if height > 0 && height%c.SubEpochBlocks == 0 {
		ev.SubEpochEnded = true
		summary := ier.SubEpochSummary{
			PrevSubEpochSummaryHash: v.LastSubEpochSummary,
			RewardChainHash:         v.LastRewardChainHash,
			NumOverflowBlocks:       v.SubEpochOverflows,
		}
		if height%c.EpochBlocks == 0 {
			ev.EpochEnded = true
			tip := height - 1
			difficulty := s.adjuster.NextDifficulty(s.store, tip, v.Difficulty)
			ips := s.adjuster.NextIPS(s.store, tip, v.IPS)
			if difficulty == 0 || ips == 0 {
				return SlotEvent{}, fmt.Errorf("retarget at %d: difficulty %d, ips %d", height, difficulty, ips)
			}
			v.Difficulty, v.IPS = difficulty, ips
			v.SlotIters = s.adjuster.NextSlotIters(s.store, tip, ips)
			v.Epoch++
			summary.NewDifficulty = difficulty
			summary.NewIPS = ips
			s.Log.Info("Epoch ended", "epoch", v.Epoch, "difficulty", difficulty, "ips", ips, "slot", v.SlotIters)
		}
		ev.Summary = &ier.IdxSubEpochSummary{SubEpochSummary: summary, Idx: v.SubEpoch}
		s.summary = ev.Summary
		v.SubEpoch++
		v.LastSubEpochSummary = summary.Hash()
		v.SubEpochOverflows = 0
	}

	ev.Difficulty = v.Difficulty
	ev.IPS = v.IPS
	return ev, nil
}
