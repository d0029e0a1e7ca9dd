package launcher

import (
	"github.com/rony4d/go-spacetime/integration"
)

// Defaults bundles the baseline values used before the config file and the
// flags override them.
type Defaults struct {
	Node     NodeDefaults
	Logging  LoggingDefaults
	Generate GenerateDefaults
	Preset   string
}

// NodeDefaults captures where data goes.
type NodeDefaults struct {
	DataDir string // empty keeps the chain in memory
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
}

// GenerateDefaults tune the generate command.
type GenerateDefaults struct {
	Blocks int
	Fees   uint64
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	return Defaults{
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
		},
		Generate: GenerateDefaults{
			Blocks: 64,
		},
		Preset: integration.FakePreset().Name,
	}
}
