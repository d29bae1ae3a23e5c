package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/johns/charlog/internal/sheet"
)

// Config holds all charlog configuration.
type Config struct {
	LogsDir   string `toml:"logs_dir"`
	ParsedDir string `toml:"parsed_dir"`

	Logging LoggingConfig `toml:"logging"`
	Archive ArchiveConfig `toml:"archive"`
	Parser  ParserConfig  `toml:"parser"`
}

type LoggingConfig struct {
	MaxLogFiles int `toml:"max_log_files"`
}

type ArchiveConfig struct {
	Compress bool `toml:"compress"`
}

// ParserConfig is the persisted form of the filter rules. It is turned
// into an immutable sheet.FilterConfig once per run; the engine never
// reads settings from disk itself.
type ParserConfig struct {
	Mode        string   `toml:"mode"` // "default" or "custom"
	OmitTags    []string `toml:"omit_tags"`
	IncludeTags []string `toml:"include_tags"`
	StripTags   []string `toml:"strip_tags"`
	SkipForName []string `toml:"skip_for_name"`

	// ResumeAfterBlock selects disjoint-occurrence extraction for
	// repeated whitelisted tags instead of the legacy re-entrant scan.
	ResumeAfterBlock bool `toml:"resume_after_block"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogsDir:   "~/.local/share/charlog/logs",
		ParsedDir: "~/.local/share/charlog/logs/parsed",
		Logging: LoggingConfig{
			MaxLogFiles: 1000,
		},
		Archive: ArchiveConfig{
			Compress: true,
		},
		Parser: ParserConfig{
			Mode:        "default",
			SkipForName: sheet.DefaultSkipForName(),
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	paths := configPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.LogsDir = expandHome(cfg.LogsDir)
	cfg.ParsedDir = expandHome(cfg.ParsedDir)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "charlog", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "charlog", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// FilterConfig builds the immutable filter rules for this run. Mode
// "default" ignores the tag lists entirely; "custom" picks whitelist
// mode when include tags are present, blacklist mode when omit tags
// are, and an empty whitelist (include nothing) when neither is.
func (c Config) FilterConfig() sheet.FilterConfig {
	var fc sheet.FilterConfig
	if strings.ToLower(c.Parser.Mode) != "custom" {
		fc = sheet.Default()
	} else {
		includeMode := len(c.Parser.IncludeTags) == 0 && len(c.Parser.OmitTags) == 0
		fc = sheet.New(c.Parser.OmitTags, c.Parser.IncludeTags, includeMode)
	}
	fc = fc.WithStrip(c.Parser.StripTags)
	fc.ResumeAfterBlock = c.Parser.ResumeAfterBlock
	return fc
}

// SkipForName returns the configured name-detection skip list, falling
// back to the built-in defaults when unset.
func (c Config) SkipForName() []string {
	if len(c.Parser.SkipForName) == 0 {
		return sheet.DefaultSkipForName()
	}
	return c.Parser.SkipForName
}

// StateDir returns the .charlog state directory inside the logs dir.
func (c Config) StateDir() string {
	return filepath.Join(c.LogsDir, ".charlog")
}

// ArchiveDir returns where pruned logs are archived.
func (c Config) ArchiveDir() string {
	return filepath.Join(c.StateDir(), "archive")
}

// IndexPath returns the parse-history database path.
func (c Config) IndexPath() string {
	return filepath.Join(c.StateDir(), "history.db")
}
