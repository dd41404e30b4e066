// Package config layers an optional TOML configuration file under CLI
// flags, the way lookbusy1344-arm_emulator/config/config.go does for its
// emulator — trimmed to the fields this interpreter actually has.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the defaults this engine's CLI flags can override.
type Config struct {
	Run struct {
		ClassDir   string `toml:"class_dir"`
		EntryClass string `toml:"entry_class"`
		DebugLevel int    `toml:"debug_level"`
	} `toml:"run"`

	Debugger struct {
		ShowStaticFields bool `toml:"show_static_fields"`
		HistorySize      int  `toml:"history_size"`
	} `toml:"debugger"`
}

// Default returns a Config with this engine's built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Run.EntryClass = "Main"
	cfg.Run.DebugLevel = 0
	cfg.Debugger.ShowStaticFields = true
	cfg.Debugger.HistorySize = 200
	return cfg
}

// LoadFrom overlays path's TOML contents onto the defaults. A missing file
// is not an error — the defaults are returned as-is (spec.md's CLI has no
// required config file).
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
