// Package check implements the diagnostics behind "charlog check".
package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/johns/charlog/internal/config"
	"github.com/johns/charlog/internal/index"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "charlog check\n\n  no checks ran\n"
	}

	// Find max name length for alignment.
	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("charlog check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports the resolved config path. Always passes — broken TOML
// is caught by config.Load before we get here.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	return Result{
		Name:   "config",
		Status: Pass,
		Detail: config.CompressHome(cfgPath),
	}
}

// CheckLogsDir checks whether the logs directory exists and reports the
// number of raw logs in it.
func CheckLogsDir(path string) Result {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Name: "logs", Status: Warn, Detail: config.CompressHome(path) + " not found (no logs saved yet)"}
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			count++
		}
	}
	return Result{Name: "logs", Status: Pass, Detail: fmt.Sprintf("%s (%d logs)", config.CompressHome(path), count)}
}

// CheckParsedDir checks the parsed output directory and reports how
// many sheets have been written across all logs.
func CheckParsedDir(path string) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "parsed", Status: Warn, Detail: config.CompressHome(path) + " not found (nothing parsed yet)"}
	}
	count := countSheets(path)
	return Result{Name: "parsed", Status: Pass, Detail: fmt.Sprintf("%s (%d sheets)", config.CompressHome(path), count)}
}

func countSheets(dir string) int {
	count := 0
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".txt") {
			count++
		}
		return nil
	})
	return count
}

// CheckStateDir checks whether the .charlog state directory exists.
func CheckStateDir(stateDir string) Result {
	if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
		return Result{Name: "state", Status: Pass, Detail: ".charlog/ found"}
	}
	return Result{Name: "state", Status: Warn, Detail: ".charlog/ not found (fresh install)"}
}

// CheckIndex opens the history database and reports how many sheets it
// has recorded.
func CheckIndex(indexPath string) Result {
	if _, err := os.Stat(indexPath); err != nil {
		return Result{Name: "index", Status: Warn, Detail: "history.db not found yet"}
	}
	ix, err := index.Open(indexPath)
	if err != nil {
		return Result{Name: "index", Status: Fail, Detail: "history.db unreadable: " + err.Error()}
	}
	defer ix.Close()
	recs, err := ix.Recent(context.Background(), 1000)
	if err != nil {
		return Result{Name: "index", Status: Fail, Detail: "history.db query failed: " + err.Error()}
	}
	return Result{Name: "index", Status: Pass, Detail: fmt.Sprintf("history.db (%d records)", len(recs))}
}

// CheckArchiveDir checks the archive directory when compression is on.
func CheckArchiveDir(path string, compress bool) Result {
	if !compress {
		return Result{Name: "archive", Status: Pass, Detail: "compression disabled"}
	}
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "archive", Status: Warn, Detail: config.CompressHome(path) + " not found (nothing pruned yet)"}
	}
	return Result{Name: "archive", Status: Pass, Detail: config.CompressHome(path)}
}

// Run executes all checks against the given config and returns a report.
func Run(cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig())
	results = append(results, CheckLogsDir(cfg.LogsDir))
	results = append(results, CheckParsedDir(cfg.ParsedDir))
	results = append(results, CheckStateDir(cfg.StateDir()))
	results = append(results, CheckIndex(cfg.IndexPath()))
	results = append(results, CheckArchiveDir(cfg.ArchiveDir(), cfg.Archive.Compress))

	return Report{Results: results}
}
