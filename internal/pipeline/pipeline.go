// Package pipeline ties decoding, sheet extraction, artifact storage
// and the history index into the end-to-end processing flow.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/johns/charlog/internal/chatlog"
	"github.com/johns/charlog/internal/index"
	"github.com/johns/charlog/internal/sheet"
	"github.com/johns/charlog/internal/store"
)

// Pipeline processes raw chat logs into character sheets.
type Pipeline struct {
	Store       *store.Store
	Index       *index.Index // optional; nil disables history recording
	Filter      sheet.FilterConfig
	SkipForName []string
}

// Outcome reports what Process did with one log.
type Outcome struct {
	Log       string // log file name
	Character string // sanitized character name, empty when skipped
	Version   string
	Path      string // written artifact path, empty when skipped
	Skipped   bool
	Reason    string // why the document was skipped
}

// Process parses one raw log file and, unless the document is skipped,
// writes the next version of its character sheet and records it in the
// history index. A document whose messages lack the required shape
// comes back with Skipped set, which is informational. A log that
// cannot be read or decoded at all is an error for that document.
func (p *Pipeline) Process(ctx context.Context, logPath string) (*Outcome, error) {
	logName := filepath.Base(logPath)

	payload, err := chatlog.DecodeFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", logName, err)
	}

	res := sheet.Parse(payload, p.Filter, p.SkipForName)
	if res.Skipped {
		return &Outcome{Log: logName, Skipped: true, Reason: res.Reason}, nil
	}

	character := store.SanitizeName(res.Name)
	version := p.Store.NextVersion(logPath)
	path, err := p.Store.WriteArtifact(logPath, character, version, res.Text)
	if err != nil {
		return nil, fmt.Errorf("writing sheet for %s: %w", logName, err)
	}

	out := &Outcome{Log: logName, Character: character, Version: version, Path: path}
	if p.Index != nil {
		rec := index.Record{
			Log:       logName,
			Character: character,
			Version:   version,
			Path:      path,
			Bytes:     int64(len(res.Text)),
		}
		if err := p.Index.Add(ctx, &rec); err != nil {
			return nil, fmt.Errorf("recording sheet for %s: %w", logName, err)
		}
	}
	return out, nil
}

// ProcessAll runs Process over every known log. A failure on one log
// does not stop the rest; the first error is returned after all logs
// have been attempted.
func (p *Pipeline) ProcessAll(ctx context.Context) ([]Outcome, error) {
	logs, err := p.Store.ListLogs()
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}

	var outcomes []Outcome
	var firstErr error
	for _, info := range logs {
		out, err := p.Process(ctx, filepath.Join(p.Store.LogsDir, info.Name))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		outcomes = append(outcomes, *out)
	}
	return outcomes, firstErr
}

// Ingest saves a raw payload as a new log and immediately processes it.
func (p *Pipeline) Ingest(ctx context.Context, payload []byte) (*Outcome, error) {
	path, err := p.Store.SaveLog(payload)
	if err != nil {
		return nil, fmt.Errorf("saving log: %w", err)
	}
	return p.Process(ctx, path)
}

// Remove deletes a raw log, its parsed artifacts, and its history
// records, so the index never outlives the log.
func (p *Pipeline) Remove(ctx context.Context, name string) error {
	path, err := p.Store.ResolveLog(name)
	if err != nil {
		return err
	}
	logName := filepath.Base(path)
	if err := p.Store.DeleteLog(logName); err != nil {
		return err
	}
	if p.Index != nil {
		return p.Index.DeleteLog(ctx, logName)
	}
	return nil
}

// Rename renames a raw log, moving its parsed artifacts and repointing
// its history records. Returns the new log file name.
func (p *Pipeline) Rename(ctx context.Context, oldName, newName string) (string, error) {
	oldPath, err := p.Store.ResolveLog(oldName)
	if err != nil {
		return "", err
	}
	renamed, err := p.Store.RenameLog(oldName, newName)
	if err != nil {
		return "", err
	}
	if p.Index != nil {
		if err := p.Index.RenameLog(ctx, filepath.Base(oldPath), renamed); err != nil {
			return renamed, err
		}
	}
	return renamed, nil
}
