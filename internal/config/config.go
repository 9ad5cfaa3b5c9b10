// Package config loads board settings. Precedence, lowest first: defaults,
// config file, DRAWBOARD_* environment, command-line flags (applied by main).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rook-computer/drawboard/internal/savepolicy"
)

const (
	EnvFile     = "DRAWBOARD_FILE"
	EnvStdioLog = "DRAWBOARD_STDIO_LOG"
	EnvAutosave = "DRAWBOARD_AUTOSAVE"
	EnvRTSave   = "DRAWBOARD_RTSAVE"

	DefaultListen = "127.0.0.1:1420"
)

type Config struct {
	File               string `toml:"file" yaml:"file"`
	Listen             string `toml:"listen" yaml:"listen"`
	Autosave           bool   `toml:"autosave" yaml:"autosave"`
	RTSave             bool   `toml:"rtsave" yaml:"rtsave"`
	AutosaveIntervalMS int    `toml:"autosave_interval_ms" yaml:"autosave_interval_ms"`
	FrameRate          int    `toml:"frame_rate" yaml:"frame_rate"`
	Window             bool   `toml:"window" yaml:"window"`
	Open               bool   `toml:"open" yaml:"open"`
	Chrome             string `toml:"chrome" yaml:"chrome"`
	Kiosk              bool   `toml:"kiosk" yaml:"kiosk"`
	StaticDir          string `toml:"static_dir" yaml:"static_dir"`
	Dev                bool   `toml:"dev" yaml:"dev"`
	Debug              bool   `toml:"debug" yaml:"debug"`
	StdioLog           string `toml:"stdio_log" yaml:"stdio_log"`
}

func Default() Config {
	return Config{
		Listen:             DefaultListen,
		AutosaveIntervalMS: int(savepolicy.DefaultInterval / time.Millisecond),
		FrameRate:          savepolicy.DefaultFrameRate,
	}
}

// DefaultPath is ~/.config/drawboard/config.toml.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "drawboard", "config.toml")
}

// LoadFile overlays the file at path onto cfg. The format follows the
// extension: .yaml/.yml, anything else is TOML.
func LoadFile(cfg Config, path string) (Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", expanded, err)
	}
	return cfg, nil
}

// Load reads path, or DefaultPath when path is empty. A missing default file
// is not an error; a missing explicit one is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}
	loaded, err := LoadFile(cfg, path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	return loaded, nil
}

// ApplyEnv overlays DRAWBOARD_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvFile); v != "" {
		c.File = v
	}
	if v := getenv(EnvStdioLog); v != "" {
		c.StdioLog = v
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{{EnvAutosave, &c.Autosave}, {EnvRTSave, &c.RTSave}} {
		raw := getenv(b.name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s must be a boolean (got %q): %w", b.name, raw, err)
		}
		*b.dst = parsed
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.File) == "" {
		return errors.New("no board file given")
	}
	if c.AutosaveIntervalMS < 0 {
		return fmt.Errorf("autosave_interval_ms must not be negative (got %d)", c.AutosaveIntervalMS)
	}
	if c.FrameRate < 0 {
		return fmt.Errorf("frame_rate must not be negative (got %d)", c.FrameRate)
	}
	return nil
}

// Mode is the save policy mode selected by the autosave/rtsave switches.
func (c Config) Mode() savepolicy.Mode {
	interval := time.Duration(c.AutosaveIntervalMS) * time.Millisecond
	return savepolicy.ModeFromFlags(c.Autosave, c.RTSave, interval, savepolicy.FrameBudget(c.FrameRate))
}
