package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/johns/charlog/internal/chatlog"
	"github.com/johns/charlog/internal/check"
	"github.com/johns/charlog/internal/config"
	"github.com/johns/charlog/internal/index"
	"github.com/johns/charlog/internal/pipeline"
	"github.com/johns/charlog/internal/store"
	"github.com/johns/charlog/internal/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	switch os.Args[1] {
	case "process":
		cmdProcess(cfg, os.Args[2:])

	case "add":
		cmdAdd(cfg, os.Args[2:])

	case "rm":
		cmdRm(cfg, os.Args[2:])

	case "rename":
		cmdRename(cfg, os.Args[2:])

	case "restore":
		cmdRestore(cfg, os.Args[2:])

	case "watch":
		cmdWatch(cfg)

	case "tags":
		cmdTags(cfg, os.Args[2:])

	case "logs":
		cmdLogs(cfg)

	case "history":
		cmdHistory(cfg, os.Args[2:])

	case "check":
		rep := check.Run(cfg)
		fmt.Print(rep.Format())
		if rep.HasFailures() {
			os.Exit(1)
		}

	case "init":
		path, err := config.WriteDefault(cfg.LogsDir)
		if err != nil {
			fatal("init: %v", err)
		}
		fmt.Printf("config: %s\n", config.CompressHome(path))

	case "version":
		fmt.Printf("charlog v%s\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func newPipeline(cfg config.Config) (*pipeline.Pipeline, func()) {
	st := &store.Store{
		LogsDir:     cfg.LogsDir,
		ParsedDir:   cfg.ParsedDir,
		ArchiveDir:  cfg.ArchiveDir(),
		MaxLogFiles: cfg.Logging.MaxLogFiles,
		Compress:    cfg.Archive.Compress,
	}
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		fatal("open history index: %v", err)
	}
	p := &pipeline.Pipeline{
		Store:       st,
		Index:       ix,
		Filter:      cfg.FilterConfig(),
		SkipForName: cfg.SkipForName(),
	}
	return p, func() { ix.Close() }
}

// cmdProcess parses one log (or every log with --all) into character
// sheets.
func cmdProcess(cfg config.Config, args []string) {
	p, closeIndex := newPipeline(cfg)
	defer closeIndex()
	ctx := context.Background()

	if len(args) == 1 && args[0] == "--all" {
		outcomes, err := p.ProcessAll(ctx)
		for _, out := range outcomes {
			report(&out)
		}
		if err != nil {
			fatal("process: %v", err)
		}
		return
	}

	if len(args) != 1 {
		fatal("usage: charlog process <log.json | --all>")
	}

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		// Not a path; try a log name from the logs dir.
		resolved, rerr := p.Store.ResolveLog(args[0])
		if rerr != nil {
			fatal("process: %v", rerr)
		}
		path = resolved
	}

	out, err := p.Process(ctx, path)
	if err != nil {
		fatal("process: %v", err)
	}
	report(out)
}

func report(out *pipeline.Outcome) {
	if out.Skipped {
		fmt.Printf("skipped %s: %s\n", out.Log, out.Reason)
		return
	}
	fmt.Printf("parsed %s: %s %s -> %s\n", out.Log, out.Character, out.Version,
		config.CompressHome(out.Path))
}

// cmdAdd saves a raw payload as a new timestamped log and processes it.
// "-" reads the payload from stdin.
func cmdAdd(cfg config.Config, args []string) {
	if len(args) != 1 {
		fatal("usage: charlog add <payload.json | ->")
	}
	var payload []byte
	var err error
	if args[0] == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		fatal("add: %v", err)
	}

	p, closeIndex := newPipeline(cfg)
	defer closeIndex()
	out, err := p.Ingest(context.Background(), payload)
	if err != nil {
		fatal("add: %v", err)
	}
	report(out)
}

// cmdRm deletes a log, its parsed sheets, and its history records.
func cmdRm(cfg config.Config, args []string) {
	if len(args) != 1 {
		fatal("usage: charlog rm <log.json>")
	}
	p, closeIndex := newPipeline(cfg)
	defer closeIndex()
	if err := p.Remove(context.Background(), args[0]); err != nil {
		fatal("rm: %v", err)
	}
	fmt.Printf("removed %s\n", args[0])
}

// cmdRename renames a log, moving its sheets and history with it.
func cmdRename(cfg config.Config, args []string) {
	if len(args) != 2 {
		fatal("usage: charlog rename <old.json> <new-name>")
	}
	p, closeIndex := newPipeline(cfg)
	defer closeIndex()
	renamed, err := p.Rename(context.Background(), args[0], args[1])
	if err != nil {
		fatal("rename: %v", err)
	}
	fmt.Printf("renamed %s -> %s\n", args[0], renamed)
}

// cmdRestore brings a pruned log back from the archive.
func cmdRestore(cfg config.Config, args []string) {
	if len(args) != 1 {
		fatal("usage: charlog restore <log>")
	}
	st := &store.Store{LogsDir: cfg.LogsDir, ArchiveDir: cfg.ArchiveDir()}
	path, err := st.RestoreLog(args[0])
	if err != nil {
		fatal("restore: %v", err)
	}
	fmt.Printf("restored %s\n", config.CompressHome(path))
}

// cmdWatch processes logs as they appear in the logs directory until
// interrupted.
func cmdWatch(cfg config.Config) {
	p, closeIndex := newPipeline(cfg)
	defer closeIndex()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(cfg.LogsDir, 0, func(ctx context.Context, path string) {
		out, err := p.Process(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "charlog: %v\n", err)
			return
		}
		report(out)
	})

	fmt.Printf("watching %s\n", config.CompressHome(cfg.LogsDir))
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		fatal("watch: %v", err)
	}
}

// cmdTags lists the tag names present in a log's system prompt.
func cmdTags(cfg config.Config, args []string) {
	if len(args) != 1 {
		fatal("usage: charlog tags <log.json>")
	}
	st := &store.Store{LogsDir: cfg.LogsDir}

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		resolved, rerr := st.ResolveLog(args[0])
		if rerr != nil {
			fatal("tags: %v", rerr)
		}
		path = resolved
	}

	payload, err := chatlog.DecodeFile(path)
	if err != nil {
		fatal("tags: %v", err)
	}
	for _, name := range payload.TagInventory() {
		fmt.Println(name)
	}
}

// cmdLogs lists stored logs, newest first.
func cmdLogs(cfg config.Config) {
	st := &store.Store{LogsDir: cfg.LogsDir, ParsedDir: cfg.ParsedDir}
	logs, err := st.ListLogs()
	if err != nil {
		fatal("logs: %v", err)
	}
	for _, info := range logs {
		sheets, _ := st.ListArtifacts(filepath.Join(cfg.LogsDir, info.Name))
		fmt.Printf("%s  %6d bytes  %d sheet(s)\n", info.Name, info.Size, len(sheets))
	}
}

// cmdHistory prints recorded sheets, for one log or the most recent
// overall.
func cmdHistory(cfg config.Config, args []string) {
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		fatal("history: %v", err)
	}
	defer ix.Close()
	ctx := context.Background()

	var recs []index.Record
	if len(args) == 1 {
		recs, err = ix.ByLog(ctx, filepath.Base(args[0]))
	} else {
		recs, err = ix.Recent(ctx, 20)
	}
	if err != nil {
		fatal("history: %v", err)
	}
	for _, rec := range recs {
		fmt.Printf("%s  %s %s  %s  %d bytes\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Character, rec.Version, rec.Log, rec.Bytes)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `charlog v%s — character sheets from chat logs

Usage:
  charlog process <log.json>    Parse one log into a character sheet
  charlog process --all         Parse every stored log
  charlog add <payload | ->     Save a payload as a new log and parse it
  charlog watch                 Parse logs as they land in the logs dir
  charlog tags <log.json>       List tag names in a log's system prompt
  charlog logs                  List stored logs
  charlog history [log.json]    Show produced sheets
  charlog rm <log.json>         Delete a log, its sheets and history
  charlog rename <old> <new>    Rename a log, moving sheets and history
  charlog restore <log>         Bring a pruned log back from the archive
  charlog check                 Diagnose config, dirs and history index
  charlog init                  Write a default config file
  charlog version               Print version
  charlog help                  Show this help

Configuration: ~/.config/charlog/config.toml
`, version)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "charlog: "+format+"\n", args...)
	os.Exit(1)
}
