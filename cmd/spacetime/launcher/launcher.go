package launcher

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-spacetime/blocktools"
	"github.com/rony4d/go-spacetime/flags"
)

var (
	allFlags = flags.Merge(flags.CommonFlags(), flags.NetworkFlags(), flags.GeneratorFlags())

	generateCommand = cli.Command{
		Action:      generate,
		Name:        "generate",
		Usage:       "Generate a chain",
		Flags:       allFlags,
		Description: `The generate command builds blocks with in-memory plots and stores them in the chain database.`,
	}
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		Flags:       allFlags,
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func newApp() *cli.App {
	app := flags.NewApp("proof of space and time chain generator")
	app.Flags = allFlags
	app.Action = generate
	app.Commands = []cli.Command{generateCommand, dumpConfigCommand}
	return app
}

// Launch runs the command line.
func Launch(args []string) error {
	return newApp().Run(args)
}

func generate(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Node.Logging); err != nil {
		return err
	}
	btCfg, err := cfg.Session.BlockToolsConfig(cfg.Node.DataDir)
	if err != nil {
		return err
	}

	bt, err := blocktools.New(btCfg)
	if err != nil {
		return err
	}
	defer bt.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Generating blocks", "preset", cfg.Session.Name, "network", cfg.Session.Network,
		"blocks", cfg.Generate.Blocks, "plots", cfg.Session.PlotCount, "seed", cfg.Session.Seed)
	blocks, err := bt.GetConsecutiveBlocks(runCtx, cfg.Generate.Blocks, blocktools.Options{
		Fees:         cfg.Generate.Fees,
		TimePerBlock: cfg.Session.TimePerBlock,
	})

	txBlocks, slots := 0, 0
	for _, b := range blocks {
		if b.IsTransactionBlock() {
			txBlocks++
		}
		slots += len(b.FinishedSlots)
	}
	st := bt.State()
	log.Info("Generated chain", "blocks", len(blocks), "tx", txBlocks, "slots", slots,
		"weight", st.Weight(), "iters", st.TotalIters(), "epoch", st.Epoch(),
		"difficulty", st.Difficulty(), "ips", st.IPS(), "tip", st.Tip().String())
	return err
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(ctx.App.Writer, string(out))
	return err
}
