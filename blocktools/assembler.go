package blocktools

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/foliage"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/iblockproc"
	"github.com/rony4d/go-spacetime/pos"
	"github.com/rony4d/go-spacetime/vdf"
)

// Input is what a block needs besides the chain state.
type Input struct {
	Proof     pos.Selection
	Timestamp inter.Timestamp

	FarmerRewardPuzzleHash hash.Hash
	PoolRewardPuzzleHash   hash.Hash
	ExtensionData          hash.Hash

	// Fees, Transactions and AggSig are ignored unless the block turns out
	// to be a transaction block.
	Fees         uint64
	Transactions foliage.Program
	AggSig       []byte
}

// Assembler combines a proof of space, the VDF segments and the foliage into
// a block extending a chain state. It never mutates the state.
type Assembler struct {
	constants consensus.Constants
	vdf       *vdf.Builder
	foliage   *foliage.Builder
	signer    foliage.Signer

	Log log.Logger
}

// NewAssembler returns an assembler signing with signer.
func NewAssembler(c consensus.Constants, vdfBuilder *vdf.Builder, signer foliage.Signer) *Assembler {
	return &Assembler{
		constants: c,
		vdf:       vdfBuilder,
		foliage:   foliage.NewBuilder(signer),
		signer:    signer,
		Log:       log.New("module", "assembler"),
	}
}

// IsTransactionBlock reports whether a block starts a new transaction block:
// its infusion challenge point must come strictly after the previous
// transaction block.
func IsTransactionBlock(overflow bool, totalIters *big.Int, ipIters, icpIters, slotIters uint64, prevTxTotalIters *big.Int) bool {
	icpTotal := new(big.Int).Sub(totalIters, new(big.Int).SetUint64(ipIters))
	icpTotal.Add(icpTotal, new(big.Int).SetUint64(icpIters))
	if overflow {
		icpTotal.Sub(icpTotal, new(big.Int).SetUint64(slotIters))
	}
	return icpTotal.Cmp(prevTxTotalIters) > 0
}

// Assemble builds the block extending s.
func (a *Assembler) Assemble(ctx context.Context, s *iblockproc.ChainState, in Input) (*inter.Block, error) {
	c := a.constants
	height := s.NextHeight()
	kind := inter.KindFromDeficit(s.Deficit())
	deficit, err := iblockproc.NextDeficit(c, s.Deficit(), kind)
	if err != nil {
		return nil, err
	}

	r := in.Proof.RequiredIters
	slotIters := s.SlotIters()
	icp, err := consensus.CalculateICPIters(c, slotIters, r)
	if err != nil {
		return nil, err
	}
	ip, err := consensus.CalculateIPIters(c, s.IPS(), slotIters, r)
	if err != nil {
		return nil, err
	}
	overflow, err := consensus.IsOverflowSubBlock(c, s.IPS(), slotIters, r)
	if err != nil {
		return nil, err
	}
	total := s.TotalIters()
	total.Add(total, new(big.Int).SetUint64(r+consensus.ExtraIters(c, s.IPS())))
	isTx := s.Empty() || IsTransactionBlock(overflow, total, ip, icp, slotIters, s.PrevTxTotalIters())

	finished := s.FinishedSlots()
	ch := s.Challenges()
	cc := vdf.ChainPlan{
		Prior:        s.CCPrior(),
		ICPChallenge: ch.CC,
		ICPIters:     icp,
		IPChallenge:  ch.CC,
		IPIters:      ip,
	}
	rcPlan := vdf.ChainPlan{
		Prior:        s.RCPrior(),
		ICPChallenge: ch.RC,
		ICPIters:     icp,
		IPChallenge:  ch.RC,
		IPIters:      ip,
	}
	// an overflow block right after a crossing has its icp in the ended slot
	if overflow && len(finished) != 0 {
		ccPrior, rcPrior := s.PrevCCPrior(), s.PrevRCPrior()
		cc.ICPChallenge, cc.ICPPrior = ch.PrevCC, &ccPrior
		rcPlan.ICPChallenge, rcPlan.ICPPrior = ch.PrevRC, &rcPrior
	}
	segs, err := a.vdf.BuildChains(ctx, vdf.SegmentPlan{
		Kind:           kind,
		ChallengeChain: cc,
		RewardChain:    rcPlan,
	})
	if err != nil {
		return nil, err
	}

	plotPK := in.Proof.PlotPublicKey
	ccSig, err := a.signer.PlotSignature(segs.ChallengeChainICP.Info.Hash().Bytes(), plotPK)
	if err != nil {
		return nil, err
	}
	rcSig, err := a.signer.PlotSignature(segs.RewardChainICP.Info.Hash().Bytes(), plotPK)
	if err != nil {
		return nil, err
	}

	rc := inter.RewardChainSubBlock{
		Height:               height,
		Weight:               s.NextWeight(kind),
		TotalIters:           total,
		RequiredIters:        r,
		Deficit:              deficit,
		IsBlock:              kind == inter.ChallengeBlock,
		Overflow:             overflow,
		ProofOfSpace:         in.Proof.ProofOfSpace.Copy(),
		ChallengeChainICPVDF: segs.ChallengeChainICP.Info,
		ChallengeChainICPSig: ccSig,
		RewardChainICPVDF:    segs.RewardChainICP.Info,
		RewardChainICPSig:    rcSig,
		RewardChainIPVDF:     segs.RewardChainIP.Info,
	}
	var ccIPProof *inter.VDFProof
	if segs.ChallengeChainIP != nil {
		info, proof := segs.ChallengeChainIP.Info, segs.ChallengeChainIP.Proof
		rc.ChallengeChainIPVDF = &info
		ccIPProof = &proof
	}
	unfinished := rc.GetUnfinished()

	params := foliage.Params{
		Height:                    height,
		PlotPublicKey:             plotPK,
		PoolPublicKey:             in.Proof.ProofOfSpace.PoolPublicKey,
		PrevSubBlockHash:          s.Tip(),
		PrevFoliageBlockHash:      s.PrevFoliageBlockHash(),
		RewardBlockHash:           rc.Hash(),
		UnfinishedRewardBlockHash: unfinished.Hash(),
		IsBlock:                   rc.IsBlock,
		IsTransactionBlock:        isTx,
		FarmerRewardPuzzleHash:    in.FarmerRewardPuzzleHash,
		PoolRewardPuzzleHash:      in.PoolRewardPuzzleHash,
		ExtensionData:             in.ExtensionData,
	}
	if isTx {
		params.Fees = in.Fees
		params.AggSig = in.AggSig
		params.Transactions = in.Transactions
		params.Timestamp = in.Timestamp
		params.PrevBlockHash = s.PrevTxBlockHash()
		params.RewardClaimsIncorporated = s.PendingRewards()
	}
	res, err := a.foliage.Build(params)
	if err != nil {
		return nil, err
	}

	b := &inter.Block{
		FinishedSlots:          finished,
		RewardChainSubBlock:    rc,
		ChallengeChainICPProof: segs.ChallengeChainICP.Proof,
		ChallengeChainIPProof:  ccIPProof,
		RewardChainICPProof:    segs.RewardChainICP.Proof,
		RewardChainIPProof:     segs.RewardChainIP.Proof,
		FoliageSubBlock:        res.FoliageSubBlock,
		FoliageBlock:           res.FoliageBlock,
		TransactionsInfo:       res.TransactionsInfo,
	}
	if isTx {
		b.TransactionsFilter = res.Filter
		if res.Generator != nil {
			gen, err := res.Generator.Bytes()
			if err != nil {
				return nil, fmt.Errorf("encode generator: %w", err)
			}
			b.TransactionsGenerator = gen
		}
	}

	a.Log.Trace("Assembled block", "height", height, "kind", kind, "overflow", overflow,
		"tx", isTx, "required", r, "icp", icp, "ip", ip)
	return b, nil
}
