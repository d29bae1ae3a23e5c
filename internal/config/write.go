package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the charlog config directory path.
// Uses $XDG_CONFIG_HOME/charlog if set, otherwise ~/.config/charlog.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "charlog")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "charlog")
}

// WriteDefault writes a default config.toml pointing at logsDir.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(logsDir string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	portableLogs := CompressHome(logsDir)
	portableParsed := CompressHome(filepath.Join(logsDir, "parsed"))

	content := fmt.Sprintf(`logs_dir = %q
parsed_dir = %q

[logging]
max_log_files = 1000

[archive]
compress = true

[parser]
mode = "default"
omit_tags = []
include_tags = []
strip_tags = []
skip_for_name = ["system", "scenario", "example_dialogs", "persona", "userpersona"]
resume_after_block = false
`, portableLogs, portableParsed)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
