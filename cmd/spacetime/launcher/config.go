package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-spacetime/flags"
	"github.com/rony4d/go-spacetime/integration"
)

// Config aggregates everything the launcher needs.
type Config struct {
	Node     NodeConfig
	Session  integration.PresetConfig
	Generate GenerateConfig
}

type NodeConfig struct {
	DataDir string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
}

type GenerateConfig struct {
	Blocks int
	Fees   uint64
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func defaultConfig(preset integration.PresetConfig) Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: d.Node.DataDir,
			Logging: LoggingConfig{
				Verbosity: d.Logging.Verbosity,
				Format:    d.Logging.Format,
			},
		},
		Session: preset,
		Generate: GenerateConfig{
			Blocks: d.Generate.Blocks,
			Fees:   d.Generate.Fees,
		},
	}
}

// MakeAllConfigs merges defaults, the preset, the config file and the flags,
// in that order.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	name := DefaultConfig().Preset
	if ctx.IsSet(flags.PresetFlag.Name) {
		name = ctx.String(flags.PresetFlag.Name)
	}
	preset, err := integration.GetPresetByName(name)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig(preset)

	if file := ctx.String(flags.ConfigFileFlag.Name); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if cfg.Node.DataDir != "" {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func loadConfigFile(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet(flags.DataDirFlag.Name) {
		cfg.Node.DataDir = resolvePath(ctx.String(flags.DataDirFlag.Name))
	}
	if ctx.IsSet(flags.LogFormatFlag.Name) {
		cfg.Node.Logging.Format = ctx.String(flags.LogFormatFlag.Name)
	}
	if ctx.IsSet(flags.VerbosityFlag.Name) {
		cfg.Node.Logging.Verbosity = ctx.Int(flags.VerbosityFlag.Name)
	}

	if ctx.IsSet(flags.NetworkFlag.Name) {
		cfg.Session.Network = ctx.String(flags.NetworkFlag.Name)
	}
	if ctx.IsSet(flags.SeedFlag.Name) {
		cfg.Session.Seed = ctx.Int64(flags.SeedFlag.Name)
	}
	if ctx.IsSet(flags.PlotsFlag.Name) {
		cfg.Session.PlotCount = ctx.Int(flags.PlotsFlag.Name)
	}
	if ctx.IsSet(flags.PlotSizeFlag.Name) {
		cfg.Session.PlotSize = uint8(ctx.Uint(flags.PlotSizeFlag.Name))
	}
	if ctx.IsSet(flags.TimePerBlockFlag.Name) {
		cfg.Session.TimePerBlock = ctx.Duration(flags.TimePerBlockFlag.Name)
	}
	if ctx.IsSet(flags.CacheFlag.Name) {
		cfg.Session.CacheSize = ctx.Int(flags.CacheFlag.Name)
	}

	if ctx.IsSet(flags.BlocksFlag.Name) {
		cfg.Generate.Blocks = ctx.Int(flags.BlocksFlag.Name)
	}
	if ctx.IsSet(flags.FeesFlag.Name) {
		cfg.Generate.Fees = ctx.Uint64(flags.FeesFlag.Name)
	}
}

// setupLogging installs the root handler.
func setupLogging(cfg LoggingConfig) error {
	var format log.Format
	switch cfg.Format {
	case "", "text":
		format = log.TerminalFormat(false)
	case "json":
		format = log.JSONFormat()
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	glogger := log.NewGlogHandler(log.StreamHandler(os.Stderr, format))
	glogger.Verbosity(log.Lvl(cfg.Verbosity))
	log.Root().SetHandler(glogger)
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
