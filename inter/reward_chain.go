package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// RewardChainSubBlock is the trunk of a block: the accounting counters, the
// proof of space and the VDF outputs it infuses.
type RewardChainSubBlock struct {
	Height     idx.Block
	Weight     *big.Int
	TotalIters *big.Int
	// RequiredIters is derived from the quality of the proof of space.
	RequiredIters uint64
	// Deficit after this block is applied.
	Deficit  uint8
	IsBlock  bool
	Overflow bool

	ProofOfSpace         ProofOfSpace
	ChallengeChainICPVDF VDFInfo
	ChallengeChainICPSig []byte
	// ChallengeChainIPVDF is nil for continuation blocks.
	ChallengeChainIPVDF *VDFInfo `rlp:"nil"`
	RewardChainICPVDF   VDFInfo
	RewardChainICPSig   []byte
	RewardChainIPVDF    VDFInfo
}

// UnfinishedRewardChainSubBlock is the part of the trunk known before the
// infusion point VDFs complete.
type UnfinishedRewardChainSubBlock struct {
	TotalIters           *big.Int
	RequiredIters        uint64
	ProofOfSpace         ProofOfSpace
	ChallengeChainICPVDF VDFInfo
	ChallengeChainICPSig []byte
	RewardChainICPVDF    VDFInfo
	RewardChainICPSig    []byte
}

// Hash of the unfinished trunk.
func (u UnfinishedRewardChainSubBlock) Hash() hash.Hash {
	return rlpHash(u)
}

// GetUnfinished strips the infusion point data.
func (r *RewardChainSubBlock) GetUnfinished() UnfinishedRewardChainSubBlock {
	return UnfinishedRewardChainSubBlock{
		TotalIters:           copyBig(r.TotalIters),
		RequiredIters:        r.RequiredIters,
		ProofOfSpace:         r.ProofOfSpace.Copy(),
		ChallengeChainICPVDF: r.ChallengeChainICPVDF.Copy(),
		ChallengeChainICPSig: common.CopyBytes(r.ChallengeChainICPSig),
		RewardChainICPVDF:    r.RewardChainICPVDF.Copy(),
		RewardChainICPSig:    common.CopyBytes(r.RewardChainICPSig),
	}
}

// Hash of the reward chain sub-block.
func (r *RewardChainSubBlock) Hash() hash.Hash {
	return rlpHash(r)
}
