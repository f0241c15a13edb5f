// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/compiler/cal"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/target"
)

type Option func(c *Compiler) error

func OptionWithFS(fs idl.FileSystem) Option {
	return func(c *Compiler) error {
		c.FS = fs
		return nil
	}
}

func OptionWithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(c *Compiler) error {
		c.LookupENV = lookupEnv
		return nil
	}
}

// OptionWithExcReporter installs a reporter shared by every call to Compile.
// Without it each call collects exceptions in a fresh reporter.
func OptionWithExcReporter(reporter exc.Reporter) Option {
	return func(c *Compiler) error {
		c.Reporter = reporter
		return nil
	}
}

// OptionWithMaxConcurrency bounds the number of files lexed and parsed at the
// same time. Values below one select the number of usable CPUs.
func OptionWithMaxConcurrency(n int) Option {
	return func(c *Compiler) error {
		c.MaxConcurrency = n
		return nil
	}
}

func OptionWithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) error {
		c.Logger = logger
		return nil
	}
}

func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.LookupENV == nil {
		c.LookupENV = os.LookupEnv
	}
	if c.FS == nil {
		dfs, err := NewDefaultFS(c.LookupENV)
		if err != nil {
			return nil, err
		}
		c.FS = dfs
	}
	if c.MaxConcurrency < 1 {
		max := runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if max > cpus {
			max = cpus
		}
		c.MaxConcurrency = max
	}
	if c.Semaphore == nil {
		c.Semaphore = newSemaphore(c.MaxConcurrency)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.SubCompilers == nil {
		c.SubCompilers = DefaultSubCompilers()
	}
	return c, nil
}

// Compiler is the batch driver. It opens every target, splits each file into
// its objects and lexes and parses the files concurrently.
type Compiler struct {
	LookupENV      func(string) (string, bool)
	FS             idl.FileSystem
	MaxConcurrency int
	Semaphore      *semaphore
	Reporter       exc.Reporter
	Logger         *slog.Logger
	SubCompilers   map[idl.FileKind]SubCompiler
}

// CompileRequest lists the targets of one run. A target is a path or a file
// URI relative to the roots of the file system and may name a directory.
type CompileRequest struct {
	Files []string
}

// Unit is one object of a source file together with everything produced
// while reading it.
type Unit struct {
	URI string
	// Index is the position of the object within its file.
	Index    int
	Tokens   []idl.Token
	Document *ast.Document
	Errors   []cal.ParseError
}

type CompileResponse struct {
	// Units are ordered by file path and then by position in the file.
	Units []*Unit
}

// Compile processes every target of req. The response is returned even when
// exceptions were reported, in which case the error is a MultiException.
func (self *Compiler) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	reporter := self.Reporter
	if reporter == nil {
		reporter = exc.NewReporter(nil)
	}
	files := make([]idl.File, 0, len(req.Files))
	opened := make(map[string]bool)
	for _, f := range req.Files {
		in, err := self.FS.Open(ctx, target.Normalize(f))
		if err != nil {
			var e exc.Exception
			if !errors.As(err, &e) {
				e = exc.WrapUnknown(exc.Location{URI: f}, err)
			}
			if fatal := reporter.Report(e); fatal != nil {
				return nil, fatal
			}
			continue
		}
		for _, inf := range in {
			if inf.Kind(ctx) == idl.FileKindNone || opened[inf.Path(ctx)] {
				continue
			}
			opened[inf.Path(ctx)] = true
			files = append(files, inf)
		}
	}
	self.Logger.DebugContext(ctx, "compiling", slog.Int("files", len(files)), slog.Int("concurrency", self.MaxConcurrency))

	results := make(chan fileResult, len(files))
	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(file idl.File) {
			defer wg.Done()
			units, err := self.compileFile(ctx, reporter, file)
			results <- fileResult{units, err}
		}(file)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	units := make([]*Unit, 0, len(files))
	for result := range results {
		if result.err != nil {
			return nil, result.err
		}
		units = append(units, result.units...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].URI != units[j].URI {
			return units[i].URI < units[j].URI
		}
		return units[i].Index < units[j].Index
	})
	resp := &CompileResponse{Units: units}
	caught := reporter.Reported()
	if len(caught) > 0 {
		return resp, MultiException(caught)
	}
	return resp, nil
}

// CompileFile lexes and parses a single file that was already opened.
func (self *Compiler) CompileFile(ctx context.Context, reporter exc.Reporter, file idl.File) ([]*Unit, error) {
	return self.compileFile(ctx, reporter, file)
}

func (self *Compiler) compileFile(ctx context.Context, reporter exc.Reporter, file idl.File) ([]*Unit, error) {
	if err := self.Semaphore.Lock(ctx); err != nil {
		return nil, err
	}
	defer self.Semaphore.Unlock()
	sc := self.SubCompilers[file.Kind(ctx)]
	if sc == nil {
		e := exc.New(exc.Location{URI: file.Path(ctx)}, exc.CodeUnsupportedFileFormat, "Unsupported file format")
		return nil, reporter.Report(e)
	}
	units, err := sc.CompileFile(ctx, reporter, file)
	if err != nil {
		return nil, err
	}
	self.Logger.DebugContext(ctx, "compiled file", slog.String("path", file.Path(ctx)), slog.Int("objects", len(units)))
	return units, nil
}

type fileResult struct {
	units []*Unit
	err   error
}

type MultiException []exc.Exception

func (self MultiException) Error() string {
	if len(self) == 0 {
		return ""
	}
	var b strings.Builder
	for _, err := range self[:len(self)-1] {
		b.WriteString(err.Error())
		b.WriteString("; ")
	}
	b.WriteString(self[len(self)-1].Error())
	return b.String()
}
