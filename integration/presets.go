// Package integration bundles block tools sessions into named presets, so a
// simulation can be started with --preset=stress instead of a dozen flags.
//
// Usage:
//
//	preset, err := integration.GetPresetByName("fake")
//	cfg, err := preset.BlockToolsConfig(dataDir)
package integration

import (
	"fmt"
	"time"

	"github.com/rony4d/go-spacetime/blocktools"
	"github.com/rony4d/go-spacetime/consensus"
	"github.com/rony4d/go-spacetime/inter"
)

// PresetConfig captures what varies between simulation sessions.
type PresetConfig struct {
	Name string
	// Network is one of "fake", "test" or "main".
	Network      string
	PlotCount    int
	PlotSize     uint8
	Seed         int64
	TimePerBlock time.Duration
	// VDFSpeed of the simulated timelord in iterations per second, the
	// network's starting IPS if zero.
	VDFSpeed uint64
	// CacheSize is the number of sub-block records kept in memory.
	CacheSize int
}

// FakePreset is the default: tiny epochs, 40 plots of size 18.
func FakePreset() PresetConfig {
	return PresetConfig{
		Name:         "fake",
		Network:      "fake",
		PlotCount:    40,
		PlotSize:     18,
		TimePerBlock: blocktools.DefaultTimePerBlock,
		CacheSize:    1024,
	}
}

// TestPreset runs with the test network constants. Its plot filter lets one
// plot in 512 through and its difficulty needs big plots, hence many k=32
// plots.
func TestPreset() PresetConfig {
	cfg := FakePreset()
	cfg.Name = "test"
	cfg.Network = "test"
	cfg.PlotCount = 2048
	cfg.PlotSize = 32
	cfg.TimePerBlock = 18 * time.Second
	cfg.CacheSize = 64 * 1024
	return cfg
}

// StressPreset generates fake network blocks fast, to push retargeting.
func StressPreset() PresetConfig {
	cfg := FakePreset()
	cfg.Name = "stress"
	cfg.PlotCount = 400
	cfg.TimePerBlock = time.Second
	cfg.CacheSize = 16 * 1024
	return cfg
}

// GetPresetByName looks up a preset.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "fake", "":
		return FakePreset(), nil
	case "test":
		return TestPreset(), nil
	case "stress":
		return StressPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: fake, test, stress)", name)
	}
}

// ApplyPreset merges the non-zero fields of preset into target.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Name != "" {
		target.Name = preset.Name
	}
	if preset.Network != "" {
		target.Network = preset.Network
	}
	if preset.PlotCount > 0 {
		target.PlotCount = preset.PlotCount
	}
	if preset.PlotSize > 0 {
		target.PlotSize = preset.PlotSize
	}
	if preset.TimePerBlock > 0 {
		target.TimePerBlock = preset.TimePerBlock
	}
	if preset.CacheSize > 0 {
		target.CacheSize = preset.CacheSize
	}
	if preset.VDFSpeed > 0 {
		target.VDFSpeed = preset.VDFSpeed
	}
	// zero is a valid seed
	target.Seed = preset.Seed
}

// NetworkGenesis returns the genesis of a named network.
func NetworkGenesis(network string) (consensus.Genesis, error) {
	switch network {
	case "fake":
		return consensus.FakeGenesis(), nil
	case "test":
		return consensus.Genesis{Constants: consensus.TestNetConstants(), Timestamp: inter.FromUnix(1616500000)}, nil
	case "main":
		return consensus.Genesis{Constants: consensus.MainNetConstants(), Timestamp: inter.FromUnix(1616500000)}, nil
	default:
		return consensus.Genesis{}, fmt.Errorf("unknown network: %q (valid: fake, test, main)", network)
	}
}

// BlockToolsConfig turns the preset into a session config storing blocks in
// dataDir, or in memory if dataDir is empty.
func (p PresetConfig) BlockToolsConfig(dataDir string) (blocktools.Config, error) {
	genesis, err := NetworkGenesis(p.Network)
	if err != nil {
		return blocktools.Config{}, err
	}
	if p.PlotCount <= 0 {
		return blocktools.Config{}, fmt.Errorf("preset %s: no plots", p.Name)
	}
	return blocktools.Config{
		Genesis:   genesis,
		PlotCount: p.PlotCount,
		PlotSize:  p.PlotSize,
		Seed:      p.Seed,
		DataDir:   dataDir,
		CacheSize: p.CacheSize,
		VDFSpeed:  p.VDFSpeed,
	}, nil
}
