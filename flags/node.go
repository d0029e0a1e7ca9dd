package flags

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	BlocksFlag = cli.IntFlag{
		Name:  "blocks",
		Usage: "Number of blocks to generate",
		Value: 64,
	}
	SeedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed of the session random source",
	}
	PlotsFlag = cli.IntFlag{
		Name:  "plots",
		Usage: "Number of in-memory plots",
	}
	PlotSizeFlag = cli.UintFlag{
		Name:  "plotsize",
		Usage: "k parameter of the plots",
	}
	TimePerBlockFlag = cli.DurationFlag{
		Name:  "time.per.block",
		Usage: "Clock step between blocks",
	}
	FeesFlag = cli.Uint64Flag{
		Name:  "fees",
		Usage: "Fees added to every transaction block",
	}
	CacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "Number of sub-block records cached in memory",
	}
)

// GeneratorFlags tune block generation.
func GeneratorFlags() []cli.Flag {
	return []cli.Flag{
		BlocksFlag,
		SeedFlag,
		PlotsFlag,
		PlotSizeFlag,
		TimePerBlockFlag,
		FeesFlag,
		CacheFlag,
	}
}
