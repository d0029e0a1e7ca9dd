// Package blocktools generates chains for tests and simulations: it owns a
// keychain, a set of in-memory plots, a chain store and the chain state, and
// extends the chain one block at a time.
package blocktools

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-spacetime/chaindb"
	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/foliage"
	"github.com/rony4d/go-spacetime/inter"
	"github.com/rony4d/go-spacetime/inter/iblockproc"
	"github.com/rony4d/go-spacetime/keychain"
	"github.com/rony4d/go-spacetime/pos"
	"github.com/rony4d/go-spacetime/vdf"
)

// DefaultTimePerBlock is used when Options leave it unset.
const DefaultTimePerBlock = 10 * time.Second

var keychainSeed = []byte("block_tools")

// Config of a session.
type Config struct {
	Genesis   consensus.Genesis
	PlotCount int
	PlotSize  uint8
	// Seed of the session random source. Same seed, same chain.
	Seed int64
	// DataDir of the chain store, in memory if empty.
	DataDir   string
	CacheSize int
	// Prover defaults to vdf.HashProver.
	Prover vdf.Prover
	// VDFSpeed is the iterations per second of the simulated timelord,
	// IPSStarting if zero. Blocks are never timestamped before the timelord
	// could have reached them.
	VDFSpeed uint64
}

// DefaultConfig is a fake network session with 40 plots of size 18.
func DefaultConfig() Config {
	return Config{
		Genesis:   consensus.FakeGenesis(),
		PlotCount: 40,
		PlotSize:  18,
		CacheSize: 1024,
	}
}

// TransactionData is a generator to include at some height.
type TransactionData struct {
	Program foliage.Program
	AggSig  []byte
	Fees    uint64
}

// Options tune block generation.
type Options struct {
	// Reward puzzle hashes default to the keychain's.
	FarmerRewardPuzzleHash hash.Hash
	PoolRewardPuzzleHash   hash.Hash
	// Fees are added to every transaction block.
	Fees uint64
	// Transactions by height. Data for a height that is not a transaction
	// block waits for the next transaction block.
	Transactions map[idx.Block]TransactionData
	TimePerBlock time.Duration
}

// BlockTools is a single-writer session.
type BlockTools struct {
	cfg Config

	keychain  *keychain.Keychain
	selector  *pos.Selector
	vdf       *vdf.Builder
	assembler *Assembler
	store     *chaindb.Store
	state     *iblockproc.ChainState

	rng      *rand.Rand
	now      inter.Timestamp
	vdfSpeed uint64
	pending  []TransactionData

	Log log.Logger
}

// New starts a session on an empty chain.
func New(cfg Config) (*BlockTools, error) {
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}
	if cfg.PlotCount < 0 {
		return nil, errors.New("negative plot count")
	}
	c := cfg.Genesis.Constants

	kc := keychain.New(keychainSeed)
	plots := make([]pos.Plot, 0, cfg.PlotCount)
	for i := 0; i < cfg.PlotCount; i++ {
		local := kc.LocalKey(uint32(i))
		if _, err := kc.AddPlotKey(local); err != nil {
			return nil, err
		}
		plot, err := pos.NewMemoryPlot(cfg.PlotSize, local.PublicKey(), kc.FarmerPublicKey(), kc.PoolPublicKey())
		if err != nil {
			return nil, err
		}
		plots = append(plots, plot)
	}

	store, err := chaindb.Open(cfg.DataDir, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	prover := cfg.Prover
	if prover == nil {
		prover = vdf.HashProver{}
	}
	vdfBuilder := vdf.NewBuilder(c.Slots.DiscriminantSizeBits, prover)
	speed := cfg.VDFSpeed
	if speed == 0 {
		speed = c.Difficulty.IPSStarting
	}
	adjuster := consensus.NewEpochAdjuster(c)
	adjuster.MaxIPS = speed

	return &BlockTools{
		cfg:       cfg,
		keychain:  kc,
		selector:  pos.NewSelector(c, plots),
		vdf:       vdfBuilder,
		assembler: NewAssembler(c, vdfBuilder, kc),
		store:     store,
		state:     iblockproc.NewChainState(c, store, adjuster),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		now:       cfg.Genesis.Timestamp,
		vdfSpeed:  speed,
		Log:       log.New("module", "blocktools"),
	}, nil
}

// Close closes the chain store.
func (bt *BlockTools) Close() error {
	return bt.store.Close()
}

func (bt *BlockTools) Constants() consensus.Constants { return bt.cfg.Genesis.Constants }
func (bt *BlockTools) Keychain() *keychain.Keychain   { return bt.keychain }
func (bt *BlockTools) Plots() []pos.Plot              { return bt.selector.Plots() }
func (bt *BlockTools) Store() *chaindb.Store          { return bt.store }

// State returns a snapshot of the chain state.
func (bt *BlockTools) State() *iblockproc.ChainState {
	return bt.state.Copy()
}

// CreateGenesisBlock builds height zero.
func (bt *BlockTools) CreateGenesisBlock(ctx context.Context, opts Options) (*inter.Block, error) {
	if !bt.state.Empty() {
		return nil, errors.New("genesis already exists")
	}
	return bt.next(ctx, opts)
}

// CreateNextBlock extends the tip by one block.
func (bt *BlockTools) CreateNextBlock(ctx context.Context, opts Options) (*inter.Block, error) {
	if bt.state.Empty() {
		return nil, errors.New("no genesis yet")
	}
	return bt.next(ctx, opts)
}

// GetConsecutiveBlocks extends the chain by n blocks, starting with genesis
// if the chain is empty. On failure it returns the blocks built so far.
func (bt *BlockTools) GetConsecutiveBlocks(ctx context.Context, n int, opts Options) ([]*inter.Block, error) {
	blocks := make([]*inter.Block, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return blocks, err
		}
		b, err := bt.next(ctx, opts)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (bt *BlockTools) next(ctx context.Context, opts Options) (*inter.Block, error) {
	c := bt.cfg.Genesis.Constants
	height := bt.state.NextHeight()

	pending := bt.pending
	if data, ok := opts.Transactions[height]; ok {
		pending = append(append([]TransactionData(nil), pending...), data)
	}

	st := bt.state.Copy()
	ev, err := iblockproc.OnNewBlock(st, height, func(plan vdf.EndOfSlotPlan) (inter.EndOfSlotBundle, error) {
		return bt.vdf.BuildEndOfSlot(ctx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}

	sel, err := bt.selector.SelectProof(bt.rng, st.Challenges().CC, st.Difficulty(), c.Difficulty.MinItersStarting, st.SlotIters())
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}

	ts := bt.now
	if !st.Empty() {
		step := opts.TimePerBlock
		if step == 0 {
			step = DefaultTimePerBlock
		}
		ts = ts.Add(uint64(step / time.Second))
		total := st.TotalIters()
		total.Add(total, new(big.Int).SetUint64(sel.RequiredIters))
		total.Add(total, new(big.Int).SetUint64(consensus.ExtraIters(c, st.IPS())))
		if earliest := bt.vdfTime(total); earliest > ts {
			ts = earliest
		}
	}

	in := Input{
		Proof:                  sel,
		Timestamp:              ts,
		FarmerRewardPuzzleHash: opts.FarmerRewardPuzzleHash,
		PoolRewardPuzzleHash:   opts.PoolRewardPuzzleHash,
		Fees:                   opts.Fees,
	}
	if in.FarmerRewardPuzzleHash == (hash.Hash{}) {
		in.FarmerRewardPuzzleHash = bt.keychain.FarmerPuzzleHash()
	}
	if in.PoolRewardPuzzleHash == (hash.Hash{}) {
		in.PoolRewardPuzzleHash = bt.keychain.PoolPuzzleHash()
	}
	bt.rng.Read(in.ExtensionData[:])
	if len(pending) != 0 {
		in.Transactions = pending[0].Program
		in.AggSig = pending[0].AggSig
		in.Fees += pending[0].Fees
	}

	b, err := bt.assembler.Assemble(ctx, st, in)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}
	if err := st.Advance(b); err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}

	if b.IsTransactionBlock() && len(pending) != 0 {
		pending = pending[1:]
	}
	bt.pending = pending
	bt.state = st
	bt.now = ts

	bt.Log.Info("Generated block", "height", height, "kind", b.Kind(), "tx", b.IsTransactionBlock(),
		"weight", b.Weight(), "iters", b.TotalIters(), "slots", len(b.FinishedSlots), "hash", b.HeaderHash().String())
	if ev.EpochEnded {
		bt.Log.Info("Retargeted", "epoch", st.Epoch(), "difficulty", ev.Difficulty, "ips", ev.IPS)
	}
	return b, nil
}

// vdfTime is the earliest time the timelord reaches totalIters, counting from
// genesis.
func (bt *BlockTools) vdfTime(totalIters *big.Int) inter.Timestamp {
	speed := new(big.Int).SetUint64(bt.vdfSpeed)
	sec := new(big.Int).Add(totalIters, speed)
	sec.Sub(sec, big.NewInt(1))
	sec.Div(sec, speed)
	if !sec.IsUint64() {
		return inter.Timestamp(^uint64(0))
	}
	return bt.cfg.Genesis.Timestamp.Add(sec.Uint64())
}
