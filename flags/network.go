package flags

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	PresetFlag = cli.StringFlag{
		Name:  "preset",
		Usage: "Session preset (fake|test|stress)",
		Value: "fake",
	}
	NetworkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "Consensus constants to build with (fake|test|main), overrides the preset",
	}
)

// NetworkFlags select the consensus constants.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		PresetFlag,
		NetworkFlag,
	}
}
