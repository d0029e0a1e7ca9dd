// Package iblockproc keeps the state between blocks: the counters of the tip,
// the running slot and the retargeted parameters. ChainState is the only
// mutable cross-block structure; it is advanced once per accepted block.
package iblockproc

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/ibr"
	"github.com/rony4d/go-spacetime/inter/ier"
)

// ErrInvalidExtension is returned when a block does not extend the tip.
var ErrInvalidExtension = errors.New("invalid chain extension")

// ChainStore persists accepted blocks.
type ChainStore interface {
	consensus.ChainView
	// CommitBlock stores b, indexes it at its height and stores summary if
	// not nil, all or nothing.
	CommitBlock(b *inter.Block, summary *ier.IdxSubEpochSummary) (ibr.SubBlockRecord, error)
}

// SlotChallenges are the challenges of the running slot and of the one
// before it.
type SlotChallenges struct {
	CC     hash.Hash
	RC     hash.Hash
	PrevCC hash.Hash
	PrevRC hash.Hash
}

// ChainVars are the counters after the tip.
type ChainVars struct {
	Height     idx.Block
	Tip        hash.Hash
	Weight     *big.Int
	TotalIters *big.Int
	Deficit    uint8

	Difficulty uint64
	IPS        uint64
	SlotIters  uint64
	// NumberIters counts the iterations into the running slot.
	NumberIters uint64

	SubEpoch            idx.Epoch
	Epoch               idx.Epoch
	SubEpochOverflows   uint8
	LastSubEpochSummary hash.Hash
	LastRewardChainHash hash.Hash

	Slot SlotChallenges
	// CCPrior is the output of the last challenge block of the slot.
	CCPrior inter.ClassgroupElement
	// RCPrior is the reward chain output of the tip.
	RCPrior inter.ClassgroupElement
	// PrevCCPrior and PrevRCPrior are the priors in force when the last
	// slot ended. Overflow blocks start their icp segments there.
	PrevCCPrior inter.ClassgroupElement
	PrevRCPrior inter.ClassgroupElement
	// FinishedSlots ended since the tip and wait for the next block.
	FinishedSlots []inter.EndOfSlotBundle

	PrevTxTotalIters     *big.Int
	PrevTxBlockHash      hash.Hash
	PrevFoliageBlockHash hash.Hash
	// PendingRewards are the reward coins the next transaction block claims.
	PendingRewards []inter.Coin
}

// Copy returns a deep copy.
func (v ChainVars) Copy() ChainVars {
	cp := v
	cp.Weight = new(big.Int).Set(v.Weight)
	cp.TotalIters = new(big.Int).Set(v.TotalIters)
	cp.PrevTxTotalIters = new(big.Int).Set(v.PrevTxTotalIters)
	cp.CCPrior = v.CCPrior.Copy()
	cp.RCPrior = v.RCPrior.Copy()
	cp.PrevCCPrior = v.PrevCCPrior.Copy()
	cp.PrevRCPrior = v.PrevRCPrior.Copy()
	cp.FinishedSlots = make([]inter.EndOfSlotBundle, len(v.FinishedSlots))
	for i, s := range v.FinishedSlots {
		cp.FinishedSlots[i] = s.Copy()
	}
	cp.PendingRewards = append([]inter.Coin(nil), v.PendingRewards...)
	return cp
}

// ChainState tracks the tip. It has a single writer.
type ChainState struct {
	vars ChainVars

	constants consensus.Constants
	store     ChainStore
	adjuster  consensus.DifficultyAdjuster

	// summary is completed by the next accepted block
	summary *ier.IdxSubEpochSummary

	Log log.Logger
}

// NewChainState returns the state before genesis.
func NewChainState(c consensus.Constants, store ChainStore, adjuster consensus.DifficultyAdjuster) *ChainState {
	ips := c.Difficulty.IPSStarting
	return &ChainState{
		vars: ChainVars{
			Weight:     new(big.Int),
			TotalIters: new(big.Int),
			Difficulty: c.Difficulty.DifficultyStarting,
			IPS:        ips,
			SlotIters:  c.SlotIters(ips),
			Slot: SlotChallenges{
				CC: c.Chain.FirstCCChallenge,
				RC: c.Chain.FirstRCChallenge,
			},
			CCPrior:          inter.DefaultClassgroupElement(),
			RCPrior:          inter.DefaultClassgroupElement(),
			PrevCCPrior:      inter.DefaultClassgroupElement(),
			PrevRCPrior:      inter.DefaultClassgroupElement(),
			PrevTxTotalIters: new(big.Int),
		},
		constants: c,
		store:     store,
		adjuster:  adjuster,
		Log:       log.New("module", "chainstate"),
	}
}

// Copy snapshots the counters. The copy shares the store.
func (s *ChainState) Copy() *ChainState {
	cp := *s
	cp.vars = s.vars.Copy()
	return &cp
}

// Hash commits to the counters.
func (s *ChainState) Hash() hash.Hash {
	hasher := sha256.New()
	err := rlp.Encode(hasher, &s.vars)
	if err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}

// Vars returns a copy of the counters.
func (s *ChainState) Vars() ChainVars { return s.vars.Copy() }

func (s *ChainState) Constants() consensus.Constants { return s.constants }
func (s *ChainState) Store() ChainStore               { return s.store }

// Empty reports whether genesis is still to be built.
func (s *ChainState) Empty() bool {
	return s.vars.TotalIters.Sign() == 0
}

// NextHeight is the height of the block extending the tip.
func (s *ChainState) NextHeight() idx.Block {
	if s.Empty() {
		return 0
	}
	return s.vars.Height + 1
}

func (s *ChainState) Height() idx.Block           { return s.vars.Height }
func (s *ChainState) Tip() hash.Hash              { return s.vars.Tip }
func (s *ChainState) Weight() *big.Int            { return new(big.Int).Set(s.vars.Weight) }
func (s *ChainState) TotalIters() *big.Int        { return new(big.Int).Set(s.vars.TotalIters) }
func (s *ChainState) Deficit() uint8              { return s.vars.Deficit }
func (s *ChainState) Difficulty() uint64          { return s.vars.Difficulty }
func (s *ChainState) IPS() uint64                 { return s.vars.IPS }
func (s *ChainState) SlotIters() uint64           { return s.vars.SlotIters }
func (s *ChainState) NumberIters() uint64         { return s.vars.NumberIters }
func (s *ChainState) SubEpoch() idx.Epoch         { return s.vars.SubEpoch }
func (s *ChainState) Epoch() idx.Epoch            { return s.vars.Epoch }
func (s *ChainState) Challenges() SlotChallenges  { return s.vars.Slot }
func (s *ChainState) PrevTxBlockHash() hash.Hash  { return s.vars.PrevTxBlockHash }
func (s *ChainState) PrevFoliageBlockHash() hash.Hash {
	return s.vars.PrevFoliageBlockHash
}

// PrevTxTotalIters are the total iters of the last transaction block.
func (s *ChainState) PrevTxTotalIters() *big.Int {
	return new(big.Int).Set(s.vars.PrevTxTotalIters)
}

// CCPrior is where the challenge chain of the next block starts.
func (s *ChainState) CCPrior() inter.ClassgroupElement { return s.vars.CCPrior.Copy() }

// RCPrior is where the reward chain of the next block starts.
func (s *ChainState) RCPrior() inter.ClassgroupElement { return s.vars.RCPrior.Copy() }

func (s *ChainState) PrevCCPrior() inter.ClassgroupElement { return s.vars.PrevCCPrior.Copy() }
func (s *ChainState) PrevRCPrior() inter.ClassgroupElement { return s.vars.PrevRCPrior.Copy() }

// FinishedSlots returns a copy of the slot buffer.
func (s *ChainState) FinishedSlots() []inter.EndOfSlotBundle {
	return s.vars.Copy().FinishedSlots
}

// PendingRewards returns the reward coins not claimed yet.
func (s *ChainState) PendingRewards() []inter.Coin {
	return append([]inter.Coin(nil), s.vars.PendingRewards...)
}

// NextDeficit returns the deficit after a block of the given kind.
func NextDeficit(c consensus.Constants, deficit uint8, kind inter.BlockKind) (uint8, error) {
	if kind == inter.ChallengeBlock {
		return c.Chain.ChallengeBlockDeficit, nil
	}
	if deficit == 0 {
		return 0, fmt.Errorf("%w: continuation at zero deficit", ErrInvalidExtension)
	}
	return deficit - 1, nil
}

// NextWeight returns the weight after a block of the given kind.
func (s *ChainState) NextWeight(kind inter.BlockKind) *big.Int {
	w := new(big.Int).Set(s.vars.Weight)
	if kind == inter.ChallengeBlock {
		w.Add(w, new(big.Int).SetUint64(s.vars.Difficulty))
	}
	return w
}

func (s *ChainState) checkExtension(b *inter.Block) error {
	if b.Height() != s.NextHeight() {
		return fmt.Errorf("%w: height %d, want %d", ErrInvalidExtension, b.Height(), s.NextHeight())
	}
	if b.PrevHeaderHash() != s.vars.Tip {
		return fmt.Errorf("%w: parent %s is not the tip", ErrInvalidExtension, b.PrevHeaderHash().String())
	}
	if b.TotalIters() == nil || b.TotalIters().Cmp(s.vars.TotalIters) <= 0 {
		return fmt.Errorf("%w: total iters do not increase", ErrInvalidExtension)
	}
	if b.Weight() == nil || b.Weight().Cmp(s.vars.Weight) < 0 {
		return fmt.Errorf("%w: weight decreases", ErrInvalidExtension)
	}
	deficit, err := NextDeficit(s.constants, s.vars.Deficit, b.Kind())
	if err != nil {
		return err
	}
	if b.Deficit() != deficit {
		return fmt.Errorf("%w: deficit %d, want %d", ErrInvalidExtension, b.Deficit(), deficit)
	}
	if b.Weight().Cmp(s.NextWeight(b.Kind())) != 0 {
		return fmt.Errorf("%w: weight %s of %s block", ErrInvalidExtension, b.Weight(), b.Kind())
	}
	if b.Kind() == inter.ChallengeBlock && b.RewardChainSubBlock.ChallengeChainIPVDF == nil {
		return fmt.Errorf("%w: challenge block without challenge chain infusion", ErrInvalidExtension)
	}
	if b.IsTransactionBlock() != (b.TransactionsInfo != nil) {
		return fmt.Errorf("%w: foliage block and transactions info disagree", ErrInvalidExtension)
	}
	return nil
}

// Advance applies an assembled block. A rejected block leaves the state
// untouched.
func (s *ChainState) Advance(b *inter.Block) error {
	if err := s.checkExtension(b); err != nil {
		return err
	}
	rec, err := s.store.CommitBlock(b, s.summary)
	if err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	s.summary = nil

	v := &s.vars
	delta := new(big.Int).Sub(b.TotalIters(), v.TotalIters)
	v.NumberIters += delta.Uint64()

	v.Height = b.Height()
	v.Tip = rec.HeaderHash
	v.Weight = new(big.Int).Set(b.Weight())
	v.TotalIters = new(big.Int).Set(b.TotalIters())
	v.Deficit = b.Deficit()
	v.LastRewardChainHash = b.RewardChainSubBlock.Hash()
	if b.RewardChainSubBlock.Overflow && v.SubEpochOverflows < ^uint8(0) {
		v.SubEpochOverflows++
	}

	if b.Kind() == inter.ChallengeBlock {
		v.CCPrior = b.RewardChainSubBlock.ChallengeChainIPVDF.Output.Copy()
	}
	v.RCPrior = b.RewardChainSubBlock.RewardChainIPVDF.Output.Copy()
	// the block owns the slots it closed
	v.FinishedSlots = nil

	pool, farmer := RewardCoins(b)
	if b.IsTransactionBlock() {
		v.PrevTxTotalIters = new(big.Int).Set(b.TotalIters())
		v.PrevTxBlockHash = rec.HeaderHash
		v.PrevFoliageBlockHash = b.FoliageBlock.Hash()
		v.PendingRewards = []inter.Coin{pool, farmer}
	} else {
		v.PendingRewards = append(v.PendingRewards, pool, farmer)
	}

	v.SlotIters = s.adjuster.NextSlotIters(s.store, v.Height, v.IPS)

	s.Log.Debug("Advanced chain", "height", v.Height, "kind", b.Kind(), "weight", v.Weight,
		"iters", v.TotalIters, "deficit", v.Deficit, "tx", b.IsTransactionBlock())
	return nil
}

// RewardCoins returns the pool and farmer coins minted by b.
func RewardCoins(b *inter.Block) (pool, farmer inter.Coin) {
	fees := uint64(0)
	if b.TransactionsInfo != nil {
		fees = b.TransactionsInfo.Fees
	}
	data := b.FoliageSubBlock.Data
	return consensus.RewardCoins(b.Height(), data.PoolTarget.PuzzleHash, data.FarmerRewardPuzzleHash, fees)
}
