// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/encoding"

	"github.com/calfront/calfront/internal/compiler"
	"github.com/calfront/calfront/internal/config"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/fs"
	"github.com/calfront/calfront/internal/report"
	"github.com/calfront/calfront/internal/symbols"
	"github.com/calfront/calfront/internal/target"
	"github.com/calfront/calfront/internal/workspace"
)

type opts struct {
	Roots          []string
	Config         string
	Output         string
	Encoding       string
	MaxConcurrency int
	LogLevel       string
	DumpTokens     bool
	DumpTree       bool
	Symbols        bool
	Search         string
	Limit          int
	Watch          bool
	Snapshot       string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	op := &opts{}
	flags := pflag.NewFlagSet("calfront", pflag.ExitOnError)
	flags.StringSliceVar(&op.Roots, "root", nil, "Root search paths for targets. Overrides roots from the configuration.")
	flags.StringVar(&op.Config, "config", "", "Configuration file. Defaults to calfront.toml in the working directory when present.")
	flags.StringVar(&op.Output, "output", "-", "Output file or - for STDOUT.")
	flags.StringVar(&op.Encoding, "encoding", "", "Code page of exports that are not UTF-8 (cp850, windows-1252, latin1).")
	flags.IntVar(&op.MaxConcurrency, "max-concurrency", 0, "Number of files parsed in parallel. Zero selects the CPU count.")
	flags.StringVar(&op.LogLevel, "log-level", "", "Log level: debug, info, warn or error.")
	flags.BoolVar(&op.DumpTokens, "dump-tokens", false, "Output the token stream of every object")
	flags.BoolVar(&op.DumpTree, "dump-tree", false, "Output the parse tree of every object as YAML")
	flags.BoolVar(&op.Symbols, "symbols", false, "Output the symbol outline of every object as YAML")
	flags.StringVar(&op.Search, "search", "", "Fuzzy search the symbols of every target and output the matches as YAML")
	flags.IntVar(&op.Limit, "limit", 20, "Maximum number of search results. Zero returns every match.")
	flags.BoolVar(&op.Watch, "watch", false, "Keep the symbol index current while files change")
	flags.StringVar(&op.Snapshot, "snapshot", "", "Load the symbol index from FILE when present and write it back on exit")
	_ = flags.Parse(os.Args[1:])
	targets := flags.Args()

	cfg, err := loadConfig(flags, op)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	legacy, _ := cfg.LegacyEncoding()

	if len(targets) < 1 {
		targets = []string{"."}
	}
	targets = localTargets(targets)

	defaultFS, err := compiler.NewDefaultFS(os.LookupEnv, fs.WithOptionEncoding(legacy))
	if err != nil {
		fatal(err)
	}
	mf := make(fs.FileSystemMulti, 0, len(cfg.Roots)+1)
	for _, root := range cfg.Roots {
		absRoot, errAbs := filepath.Abs(os.ExpandEnv(root))
		if errAbs != nil {
			fatal(errAbs)
		}
		rf, err := fs.NewFileSystemLocal(absRoot, fs.WithOptionEncoding(legacy))
		if err != nil {
			fatal(err)
		}
		mf = append(mf, rf)
	}
	mf = append(mf, defaultFS)

	c, err := compiler.New(
		compiler.OptionWithLookupEnv(os.LookupEnv),
		compiler.OptionWithFS(mf),
		compiler.OptionWithMaxConcurrency(cfg.MaxConcurrency),
		compiler.OptionWithLogger(logger),
	)
	if err != nil {
		fatal(err)
	}

	out := io.Writer(os.Stdout)
	if op.Output != "-" {
		f, err := os.Create(op.Output)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		out = f
	}

	if op.Watch || op.Search != "" || cfg.Snapshot != "" {
		os.Exit(runIndex(ctx, c, cfg, op, targets, out, logger, legacy))
	}
	os.Exit(runCompile(ctx, c, op, targets, out))
}

func loadConfig(flags *pflag.FlagSet, op *opts) (*config.Config, error) {
	options := []config.Option{config.OptionWithLookupEnv(os.LookupEnv)}
	if op.Config != "" {
		options = append(options, config.OptionWithPath(op.Config))
	} else {
		options = append(options, config.OptionWithDir("."))
	}
	cfg, err := config.Load(options...)
	if err != nil {
		return nil, err
	}
	if flags.Changed("root") {
		cfg.Roots = op.Roots
	}
	if flags.Changed("encoding") {
		cfg.Encoding = op.Encoding
	}
	if flags.Changed("max-concurrency") {
		cfg.MaxConcurrency = op.MaxConcurrency
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = op.LogLevel
	}
	if flags.Changed("snapshot") {
		cfg.Snapshot = op.Snapshot
	}
	return cfg, cfg.Validate()
}

// runCompile parses every target once and prints what was asked for.
func runCompile(ctx context.Context, c *compiler.Compiler, op *opts, targets []string, out io.Writer) int {
	resp, err := c.Compile(ctx, &compiler.CompileRequest{Files: targets})
	var me compiler.MultiException
	if err != nil && !errors.As(err, &me) {
		fatal(err)
	}
	var outlines []*symbols.Symbol
	for _, unit := range resp.Units {
		if op.DumpTokens {
			if err := report.Tokens(out, unit.URI, unit.Tokens); err != nil {
				fatal(err)
			}
		}
		if op.DumpTree {
			if err := report.Encode(out, report.Tree(unit.Document)); err != nil {
				fatal(err)
			}
		}
		if op.Symbols {
			outlines = append(outlines, symbols.Outline(unit.URI, unit.Document))
			reporter := exc.NewReporter(nil)
			symbols.Collect(unit.URI, unit.Document, reporter)
			me = append(me, reporter.Reported()...)
		}
	}
	if op.Symbols {
		if err := report.Encode(out, report.Outlines(outlines)); err != nil {
			fatal(err)
		}
	}
	return printDiagnostics(me)
}

// runIndex builds the workspace index, answers searches against it and keeps
// it current when watching.
func runIndex(ctx context.Context, c *compiler.Compiler, cfg *config.Config, op *opts, targets []string, out io.Writer, logger *slog.Logger, legacy encoding.Encoding) int {
	index := workspace.NewIndex(workspace.WithIndexLogger(logger))
	if cfg.Snapshot != "" {
		b, err := os.ReadFile(cfg.Snapshot)
		switch {
		case err == nil:
			if err := index.LoadSnapshot(b); err != nil {
				logger.Warn("ignoring unreadable snapshot", "path", cfg.Snapshot, "error", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			fatal(err)
		}
	}

	// Diagnostics are read back from the index below.
	if err := index.Populate(ctx, c, targets); err != nil {
		var me compiler.MultiException
		if !errors.As(err, &me) {
			fatal(err)
		}
	}

	if op.Search != "" {
		if err := report.Encode(out, report.Matches(index.Search(op.Search, op.Limit))); err != nil {
			fatal(err)
		}
	}
	if op.Symbols {
		var outlines []*symbols.Symbol
		for _, path := range index.Paths() {
			entry, _ := index.Get(path)
			outlines = append(outlines, entry.Outlines...)
		}
		if err := report.Encode(out, report.Outlines(outlines)); err != nil {
			fatal(err)
		}
	}

	if op.Watch {
		roots := cfg.Roots
		if len(roots) < 1 {
			roots = []string{"."}
		}
		w := workspace.NewWatcher(c, index, roots,
			workspace.WithWatcherDebounce(time.Duration(cfg.WatchDebounce)),
			workspace.WithWatcherLogger(logger),
			workspace.WithWatcherFileOptions(fs.WithFileEncoding(legacy)),
			workspace.WithWatcherOnFlush(func(paths []string) {
				for _, path := range paths {
					entry, ok := index.Get(path)
					if !ok {
						continue
					}
					for _, d := range report.Diagnostics(entry.Diagnostics) {
						logger.Warn("diagnostic", "uri", d.URI, "line", d.Line, "column", d.Column, "code", d.Code, "message", d.Message)
					}
				}
				saveSnapshot(ctx, index, cfg.Snapshot, logger)
			}),
		)
		if err := w.Start(ctx); err != nil {
			fatal(err)
		}
		<-ctx.Done()
		w.Stop()
		saveSnapshot(ctx, index, cfg.Snapshot, logger)
		return 0
	}

	saveSnapshot(ctx, index, cfg.Snapshot, logger)
	return printDiagnostics(index.Diagnostics())
}

func saveSnapshot(ctx context.Context, index *workspace.Index, path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	err := writeSnapshot(ctx, index, path)
	if err != nil {
		logger.Error("failed to write snapshot", "path", path, "error", err)
		return
	}
	logger.Debug("wrote snapshot", "path", path, "files", index.Len())
}

func writeSnapshot(ctx context.Context, index *workspace.Index, path string) error {
	b, err := index.Snapshot()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, name := filepath.Split(abs)
	lfs, err := fs.NewFileSystemLocal(dir)
	if err != nil {
		return err
	}
	return lfs.Write(ctx, name, string(b))
}

// localTargets rewrites absolute paths below the working directory so they
// resolve against the working directory root.
func localTargets(targets []string) []string {
	cwd, err := os.Getwd()
	if err != nil {
		return targets
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if filepath.IsAbs(t) {
			if rel, ok := target.Relative(cwd, t); ok {
				t = rel
			}
		}
		out = append(out, t)
	}
	return out
}

// printDiagnostics writes every exception to STDERR. The exit code is one
// when any of them is an error rather than a warning.
func printDiagnostics(excs []exc.Exception) int {
	code := 0
	for _, e := range excs {
		fmt.Fprintln(os.Stderr, e.Error())
		if e.Code() != exc.CodeDuplicateSymbol {
			code = 1
		}
	}
	return code
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
