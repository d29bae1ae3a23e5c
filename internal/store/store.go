// Package store persists raw chat-log JSON documents and the derived
// character-sheet text artifacts. Logs live flat in one directory under
// timestamped names; each log gets its own parsed/ subdirectory holding
// versioned .txt outputs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Store manages the logs directory and derived artifacts.
type Store struct {
	LogsDir    string
	ParsedDir  string
	ArchiveDir string

	// MaxLogFiles caps the number of raw logs kept; older ones are
	// pruned (and archived first when Compress is set). Zero means
	// unlimited.
	MaxLogFiles int
	Compress    bool
}

// LogInfo describes one raw log file.
type LogInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

const timestampLayout = "2006-01-02_15-04-05.000"

// SaveLog writes a raw payload as a new timestamped JSON log and prunes
// old logs past the retention cap.
func (s *Store) SaveLog(payload []byte) (string, error) {
	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	name := strings.ReplaceAll(time.Now().UTC().Format(timestampLayout), ".", "_") + ".json"
	path := filepath.Join(s.LogsDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	if err := s.Prune(); err != nil {
		return path, fmt.Errorf("prune logs: %w", err)
	}
	return path, nil
}

// ListLogs returns the raw logs sorted newest first.
func (s *Store) ListLogs() ([]LogInfo, error) {
	entries, err := os.ReadDir(s.LogsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logs dir: %w", err)
	}
	var logs []LogInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, LogInfo{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ModTime.After(logs[j].ModTime) })
	return logs, nil
}

// Prune trims the logs directory down to MaxLogFiles, archiving each
// pruned log first when compression is enabled. The parsed artifacts of
// pruned logs are left in place.
func (s *Store) Prune() error {
	if s.MaxLogFiles <= 0 {
		return nil
	}
	logs, err := s.ListLogs()
	if err != nil {
		return err
	}
	for _, old := range logs[min(len(logs), s.MaxLogFiles):] {
		path := filepath.Join(s.LogsDir, old.Name)
		if s.Compress {
			if _, err := archiveLog(path, s.ArchiveDir); err != nil {
				return fmt.Errorf("archive %s: %w", old.Name, err)
			}
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", old.Name, err)
		}
	}
	return nil
}

// ResolveLog maps a user-supplied log name (with or without .json) to a
// path inside the logs directory, rejecting traversal outside it.
func (s *Store) ResolveLog(name string) (string, error) {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return "", fmt.Errorf("empty log name")
	}
	if !strings.HasSuffix(raw, ".json") {
		raw += ".json"
	}
	path := filepath.Join(s.LogsDir, filepath.Base(raw))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("log %s: %w", raw, err)
	}
	return path, nil
}

// DeleteLog removes a raw log and its parsed artifact directory.
func (s *Store) DeleteLog(name string) error {
	path, err := s.ResolveLog(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return os.RemoveAll(s.ParsedDirFor(path))
}

// RenameLog renames a raw log and moves its parsed artifact directory
// along with it, returning the new log file name after sanitization.
// Fails if the destination already exists.
func (s *Store) RenameLog(oldName, newName string) (string, error) {
	oldPath, err := s.ResolveLog(oldName)
	if err != nil {
		return "", err
	}
	newBase := SanitizeName(strings.TrimSuffix(strings.TrimSpace(newName), ".json"))
	newPath := filepath.Join(s.LogsDir, newBase+".json")
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("log %s already exists", newBase)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("rename log: %w", err)
	}
	oldDir := s.ParsedDirFor(oldPath)
	if fi, err := os.Stat(oldDir); err == nil && fi.IsDir() {
		if err := os.Rename(oldDir, s.ParsedDirFor(newPath)); err != nil {
			return "", fmt.Errorf("move parsed dir: %w", err)
		}
	}
	return newBase + ".json", nil
}

// ParsedDirFor returns the per-log directory holding versioned .txt
// artifacts: ParsedDir/<log stem>.
func (s *Store) ParsedDirFor(logPath string) string {
	stem := strings.TrimSuffix(filepath.Base(logPath), ".json")
	return filepath.Join(s.ParsedDir, stem)
}

var versionSuffix = regexp.MustCompile(`\.v(\d+)\.txt$`)

// NextVersion returns the next version label (v1, v2, ...) for a log's
// parsed artifacts, scanning the existing *.vN.txt files.
func (s *Store) NextVersion(logPath string) string {
	maxV := 0
	entries, err := os.ReadDir(s.ParsedDirFor(logPath))
	if err == nil {
		for _, e := range entries {
			m := versionSuffix.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			if v, err := strconv.Atoi(m[1]); err == nil && v > maxV {
				maxV = v
			}
		}
	}
	return fmt.Sprintf("v%d", maxV+1)
}

var unsafeChars = regexp.MustCompile(`[^0-9A-Za-z _\-()&]+`)

// SanitizeName reduces a character name to a safe filename stem. An
// empty result falls back to "character".
func SanitizeName(name string) string {
	safe := strings.TrimSpace(unsafeChars.ReplaceAllString(name, "_"))
	if safe == "" {
		return "character"
	}
	return safe
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// WriteArtifact persists composed sheet text for a log under
// <parsed dir>/<sanitized character>.<version>.txt, prefixed with a
// UTF-8 byte-order mark for the log readers that expect one.
func (s *Store) WriteArtifact(logPath, character, version, text string) (string, error) {
	dir := s.ParsedDirFor(logPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create parsed dir: %w", err)
	}
	name := SanitizeName(character)
	if version != "" {
		name += "." + version
	}
	path := filepath.Join(dir, name+".txt")
	data := append(append([]byte{}, bom...), text...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// ListArtifacts returns a log's parsed artifact filenames, newest
// version first.
func (s *Store) ListArtifacts(logPath string) ([]string, error) {
	entries, err := os.ReadDir(s.ParsedDirFor(logPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read parsed dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		vi, vj := artifactVersion(names[i]), artifactVersion(names[j])
		if vi != vj {
			return vi > vj
		}
		return names[i] < names[j]
	})
	return names, nil
}

func artifactVersion(name string) int {
	m := versionSuffix.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	v, _ := strconv.Atoi(m[1])
	return v
}
