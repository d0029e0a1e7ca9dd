// Package consensus defines the network constants of the chain and the pure
// functions derived from them: iteration targets, the reward schedule, the
// coinbase coins and the difficulty adjustment.
//
// A Constants value identifies a network. Presets are provided for the main
// network, the test network and a fake network with tiny epochs, which block
// tools and tests use so that retargeting is reachable in a few dozen blocks.
package consensus

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
)

// Network identification constants
const (
	MainNetworkID uint64 = 0x5e1
	TestNetworkID uint64 = 0x5e2
	FakeNetworkID uint64 = 0x5e3
)

// ConstantsRLP is the serializable form of Constants.
type ConstantsRLP struct {
	Name      string
	NetworkID uint64

	// Slots options
	Slots SlotRules
	// Epochs options
	Epochs EpochRules
	// Difficulty options
	Difficulty DifficultyRules
	// Chain options
	Chain ChainRules
}

// Constants describes the consensus parameters of a network.
type Constants ConstantsRLP

// SlotRules shape a slot of the challenge chain.
type SlotRules struct {
	// SlotTimeTarget is the target duration of a slot, in seconds.
	SlotTimeTarget uint64
	// ExtraItersTimeTarget is the delay, in seconds, between the infusion
	// challenge point and the infusion point on top of the required iters.
	ExtraItersTimeTarget uint64
	// NumCheckpointsPerSlot splits a slot into infusion challenge points.
	NumCheckpointsPerSlot uint64
	// DiscriminantSizeBits of the VDF class group.
	DiscriminantSizeBits uint32
}

// EpochRules define the retargeting windows.
type EpochRules struct {
	// SubEpochBlocks is the number of blocks between sub-epoch summaries.
	SubEpochBlocks idx.Block
	// EpochBlocks is the number of blocks between retargets. It must be a
	// multiple of SubEpochBlocks.
	EpochBlocks idx.Block
	// DifficultyFactor bounds how far a single retarget may move difficulty
	// and IPS, in both directions.
	DifficultyFactor uint64
	// BlockTimeTarget is the wanted average time per challenge block, in
	// seconds.
	BlockTimeTarget uint64
}

// DifficultyRules hold the initial values of the retargeted parameters.
type DifficultyRules struct {
	DifficultyStarting uint64
	MinItersStarting   uint64
	IPSStarting        uint64
	// NumberZeroBitsChallengeSig is the plot filter: only plots whose
	// (plot id, challenge) hash starts with this many zero bits may answer.
	NumberZeroBitsChallengeSig uint8
}

// ChainRules fix the chain shape.
type ChainRules struct {
	// ChallengeBlockDeficit is the deficit a challenge block resets to.
	ChallengeBlockDeficit uint8
	FirstCCChallenge      hash.Hash
	FirstRCChallenge      hash.Hash
}

// MainNetConstants returns the constants of the main network.
func MainNetConstants() Constants {
	return Constants{
		Name:      "main",
		NetworkID: MainNetworkID,
		Slots:     DefaultSlotRules(),
		Epochs: EpochRules{
			SubEpochBlocks:   384,
			EpochBlocks:      32256,
			DifficultyFactor: 3,
			BlockTimeTarget:  32,
		},
		Difficulty: DifficultyRules{
			DifficultyStarting:         1 << 30,
			MinItersStarting:           1 << 18,
			IPSStarting:                100000,
			NumberZeroBitsChallengeSig: 9,
		},
		Chain: defaultChainRules("main"),
	}
}

// TestNetConstants returns the constants of the test network. They match the
// main network except for the identity.
func TestNetConstants() Constants {
	c := MainNetConstants()
	c.Name = "test"
	c.NetworkID = TestNetworkID
	c.Chain = defaultChainRules("test")
	return c
}

// FakeNetConstants returns constants for local simulation. Epochs are short
// and the plot filter lets every other plot through.
func FakeNetConstants() Constants {
	slots := DefaultSlotRules()
	slots.SlotTimeTarget = 30
	slots.ExtraItersTimeTarget = 1
	return Constants{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Slots:     slots,
		Epochs: EpochRules{
			SubEpochBlocks:   8,
			EpochBlocks:      32,
			DifficultyFactor: 3,
			BlockTimeTarget:  30,
		},
		Difficulty: DifficultyRules{
			DifficultyStarting:         20,
			MinItersStarting:           100,
			IPSStarting:                2000,
			NumberZeroBitsChallengeSig: 1,
		},
		Chain: defaultChainRules("fake"),
	}
}

// DefaultSlotRules returns the main network slot shape.
func DefaultSlotRules() SlotRules {
	return SlotRules{
		SlotTimeTarget:        600,
		ExtraItersTimeTarget:  3,
		NumCheckpointsPerSlot: 32,
		DiscriminantSizeBits:  1024,
	}
}

func defaultChainRules(name string) ChainRules {
	return ChainRules{
		ChallengeBlockDeficit: 5,
		FirstCCChallenge:      firstChallenge(name, "cc"),
		FirstRCChallenge:      firstChallenge(name, "rc"),
	}
}

func firstChallenge(network, chain string) hash.Hash {
	return hash.Of([]byte(network), []byte(chain), []byte("genesis challenge"))
}

// SlotIters returns the slot length for the given speed, saturating at
// math.MaxUint64.
func (c Constants) SlotIters(ips uint64) uint64 {
	return mulSat(ips, c.Slots.SlotTimeTarget)
}

// Validate checks the relations the rest of the code relies on.
func (c Constants) Validate() error {
	if c.Epochs.SubEpochBlocks == 0 || c.Epochs.EpochBlocks == 0 {
		return errors.New("epoch sizes must be positive")
	}
	if c.Epochs.EpochBlocks%c.Epochs.SubEpochBlocks != 0 {
		return fmt.Errorf("epoch of %d blocks is not a multiple of sub-epoch of %d blocks",
			c.Epochs.EpochBlocks, c.Epochs.SubEpochBlocks)
	}
	if c.Epochs.DifficultyFactor < 1 {
		return errors.New("difficulty factor must be at least 1")
	}
	if c.Slots.NumCheckpointsPerSlot == 0 || c.Slots.SlotTimeTarget == 0 {
		return errors.New("slot shape must be positive")
	}
	if c.Difficulty.DifficultyStarting == 0 || c.Difficulty.IPSStarting == 0 {
		return errors.New("starting difficulty and ips must be positive")
	}
	if c.SlotIters(c.Difficulty.IPSStarting) < c.Slots.NumCheckpointsPerSlot {
		return errors.New("slot is shorter than its checkpoints")
	}
	if c.Chain.ChallengeBlockDeficit == 0 {
		return errors.New("challenge block deficit must be positive")
	}
	if c.Slots.DiscriminantSizeBits == 0 {
		return errors.New("discriminant size must be positive")
	}
	return nil
}

// Copy returns a copy of the constants. All fields are values, so a plain
// assignment is enough, but callers should not rely on that.
func (c Constants) Copy() Constants {
	return c
}

// String returns the JSON form, for logs.
func (c Constants) String() string {
	b, _ := json.Marshal(&c)
	return string(b)
}

// Hash identifies the network parameters.
func (c Constants) Hash() hash.Hash {
	hasher := sha256.New()
	if err := rlp.Encode(hasher, ConstantsRLP(c)); err != nil {
		panic("can't encode: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}
