// Package foliage builds the per-block reward and transaction metadata: the
// reward coins, the transaction filter, the addition and removal commitments
// and the signed foliage records.
package foliage

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/crypto/bls"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/plotpk"
)

// Signer provides the farmer and pool signatures.
type Signer interface {
	PlotSignature(msg []byte, plotPK plotpk.PubKey) ([]byte, error)
	PoolSignature(target inter.PoolTarget, poolPK plotpk.PubKey) ([]byte, error)
}

// Params are the inputs of a foliage build.
type Params struct {
	Height idx.Block
	Fees   uint64
	// AggSig is the aggregate signature of the transactions, if any.
	AggSig       []byte
	Transactions Program

	PlotPublicKey plotpk.PubKey
	PoolPublicKey plotpk.PubKey

	PrevSubBlockHash          hash.Hash
	PrevFoliageBlockHash      hash.Hash
	RewardBlockHash           hash.Hash
	UnfinishedRewardBlockHash hash.Hash
	IsBlock                   bool

	IsTransactionBlock bool
	Timestamp          inter.Timestamp
	// PrevBlockHash is the header hash of the previous transaction block.
	PrevBlockHash            hash.Hash
	RewardClaimsIncorporated []inter.Coin

	FarmerRewardPuzzleHash hash.Hash
	PoolRewardPuzzleHash   hash.Hash
	ExtensionData          hash.Hash
}

// Result is the built foliage.
type Result struct {
	FoliageSubBlock inter.FoliageSubBlock
	// FoliageBlock and TransactionsInfo are nil unless IsTransactionBlock.
	FoliageBlock     *inter.FoliageBlock
	TransactionsInfo *inter.TransactionsInfo
	Generator        Program
	Filter           []byte

	PoolCoin   inter.Coin
	FarmerCoin inter.Coin
	Additions  []inter.Coin
	Removals   []hash.Hash
}

// Builder builds foliage.
type Builder struct {
	signer Signer

	Log log.Logger
}

// NewBuilder signs with signer.
func NewBuilder(signer Signer) *Builder {
	return &Builder{
		signer: signer,
		Log:    log.New("module", "foliage"),
	}
}

// Build assembles the foliage of one block.
func (b *Builder) Build(p Params) (*Result, error) {
	res := &Result{Generator: p.Transactions}

	// rewards
	res.PoolCoin, res.FarmerCoin = consensus.RewardCoins(p.Height, p.PoolRewardPuzzleHash, p.FarmerRewardPuzzleHash, p.Fees)

	// transactions
	var cost uint64
	if p.Transactions != nil {
		spends, c, err := p.Transactions.Evaluate()
		if err != nil {
			return nil, fmt.Errorf("evaluate generator: %w", err)
		}
		cost = c
		for _, s := range spends {
			res.Removals = append(res.Removals, s.Coin.Name())
			res.Additions = append(res.Additions, s.Additions...)
		}
	}

	// filter
	items := make([][]byte, 0, len(res.Additions)+len(res.Removals)+2)
	for _, c := range res.Additions {
		items = append(items, c.PuzzleHash.Bytes())
	}
	for _, r := range res.Removals {
		items = append(items, r.Bytes())
	}
	items = append(items, p.FarmerRewardPuzzleHash.Bytes(), p.PoolRewardPuzzleHash.Bytes())
	filter, err := BuildFilter(items)
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}
	res.Filter = filter

	// commitments
	removalsRoot, err := RemovalsRoot(res.Removals)
	if err != nil {
		return nil, err
	}
	additionsRoot, err := AdditionsRoot(append(append([]inter.Coin(nil), res.Additions...), res.PoolCoin, res.FarmerCoin))
	if err != nil {
		return nil, err
	}

	// signatures
	poolTarget := inter.PoolTarget{PuzzleHash: p.PoolRewardPuzzleHash, MaxHeight: p.Height}
	poolSig, err := b.signer.PoolSignature(poolTarget, p.PoolPublicKey)
	if err != nil {
		return nil, err
	}
	aggSig := poolSig
	if len(p.AggSig) != 0 {
		aggSig, err = bls.Aggregate(poolSig, p.AggSig)
		if err != nil {
			return nil, fmt.Errorf("aggregate signatures: %w", err)
		}
	}

	data := inter.FoliageSubBlockData{
		UnfinishedRewardBlockHash: p.UnfinishedRewardBlockHash,
		PoolTarget:                poolTarget,
		PoolSignature:             poolSig,
		FarmerRewardPuzzleHash:    p.FarmerRewardPuzzleHash,
		ExtensionData:             p.ExtensionData,
		PrevFoliageBlockHash:      p.PrevFoliageBlockHash,
	}
	dataHash := data.Hash()
	plotSig, err := b.signer.PlotSignature(dataHash.Bytes(), p.PlotPublicKey)
	if err != nil {
		return nil, err
	}

	res.FoliageSubBlock = inter.FoliageSubBlock{
		PrevSubBlockHash: p.PrevSubBlockHash,
		RewardBlockHash:  p.RewardBlockHash,
		IsBlock:          p.IsBlock,
		Data:             data,
		PlotKeySignature: plotSig,
	}

	if p.IsTransactionBlock {
		generatorHash := hash.Hash{}
		if p.Transactions != nil {
			generatorHash = p.Transactions.Hash()
		}
		info := &inter.TransactionsInfo{
			GeneratorHash:            generatorHash,
			AggregatedSignature:      aggSig,
			Fees:                     p.Fees,
			Cost:                     cost,
			RewardClaimsIncorporated: p.RewardClaimsIncorporated,
		}
		fb := &inter.FoliageBlock{
			PrevBlockHash:        p.PrevBlockHash,
			Timestamp:            p.Timestamp,
			FilterHash:           hash.Of(filter),
			AdditionsRoot:        additionsRoot,
			RemovalsRoot:         removalsRoot,
			TransactionsInfoHash: info.Hash(),
		}
		res.TransactionsInfo = info
		res.FoliageBlock = fb
		res.FoliageSubBlock.FoliageBlockHash = fb.Hash()
	}

	b.Log.Trace("Built foliage", "height", p.Height, "tx", p.IsTransactionBlock,
		"additions", len(res.Additions), "removals", len(res.Removals))
	return res, nil
}

// RemovalsRoot commits to the spent coin names.
func RemovalsRoot(removals []hash.Hash) (hash.Hash, error) {
	set := NewMerkleSet()
	for _, r := range removals {
		if err := set.AddAlreadyHashed(r); err != nil {
			return hash.Hash{}, err
		}
	}
	return set.Root(), nil
}

// AdditionsRoot commits to the created coins grouped by puzzle hash: the set
// holds every puzzle hash and the hash of its coin list.
func AdditionsRoot(additions []inter.Coin) (hash.Hash, error) {
	set, err := AdditionsSet(additions)
	if err != nil {
		return hash.Hash{}, err
	}
	return set.Root(), nil
}

// AdditionsSet builds the set behind AdditionsRoot, for proofs.
func AdditionsSet(additions []inter.Coin) (*MerkleSet, error) {
	byPuzzle := GroupByPuzzleHash(additions)
	puzzles := make([]hash.Hash, 0, len(byPuzzle))
	for ph := range byPuzzle {
		puzzles = append(puzzles, ph)
	}
	sort.Slice(puzzles, func(i, j int) bool {
		return bytes.Compare(puzzles[i].Bytes(), puzzles[j].Bytes()) < 0
	})

	set := NewMerkleSet()
	for _, ph := range puzzles {
		if err := set.AddAlreadyHashed(ph); err != nil {
			return nil, err
		}
		if err := set.AddAlreadyHashed(inter.HashCoinList(byPuzzle[ph])); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// GroupByPuzzleHash groups coins by destination.
func GroupByPuzzleHash(coins []inter.Coin) map[hash.Hash][]inter.Coin {
	m := make(map[hash.Hash][]inter.Coin)
	for _, c := range coins {
		m[c.PuzzleHash] = append(m[c.PuzzleHash], c)
	}
	return m
}
