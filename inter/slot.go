package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
)

// ChallengeSlot closes a slot of the challenge chain. Its hash is the
// challenge of the next slot.
type ChallengeSlot struct {
	// PrevSlotChallenge is the challenge the ended slot was running on.
	PrevSlotChallenge hash.Hash
	EndOfSlotVDF      VDFInfo
}

// Hash is the challenge chain challenge for the following slot.
func (s ChallengeSlot) Hash() hash.Hash {
	return rlpHash(s)
}

// RewardChainEndOfSlot closes a slot of the reward chain.
type RewardChainEndOfSlot struct {
	EndOfSlotVDF      VDFInfo
	ChallengeSlotHash hash.Hash
	// Deficit at the moment the slot ended.
	Deficit uint8
}

// Hash is the reward chain challenge for the following slot.
func (s RewardChainEndOfSlot) Hash() hash.Hash {
	return rlpHash(s)
}

// EndOfSlotProofs holds the witnesses for both end of slot VDFs.
type EndOfSlotProofs struct {
	ChallengeChainSlotProof VDFProof
	RewardChainSlotProof    VDFProof
}

// EndOfSlotBundle is one finished slot as carried by the next block.
type EndOfSlotBundle struct {
	ChallengeChain ChallengeSlot
	RewardChain    RewardChainEndOfSlot
	Proofs         EndOfSlotProofs
}

// Hash of the bundle.
func (b EndOfSlotBundle) Hash() hash.Hash {
	return rlpHash(b)
}

// Copy returns a deep copy.
func (b EndOfSlotBundle) Copy() EndOfSlotBundle {
	cp := b
	cp.ChallengeChain.EndOfSlotVDF = b.ChallengeChain.EndOfSlotVDF.Copy()
	cp.RewardChain.EndOfSlotVDF = b.RewardChain.EndOfSlotVDF.Copy()
	return cp
}
