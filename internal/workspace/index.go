// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package workspace keeps the symbols of every indexed export in memory and
// keeps them current while files change on disk.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/calfront/calfront/internal/compiler"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/symbols"
)

// Entry is everything known about one indexed file. Units is empty for
// entries restored from a snapshot.
type Entry struct {
	Path        string
	ModTime     time.Time
	Units       []*compiler.Unit
	Outlines    []*symbols.Symbol
	Symbols     []*symbols.Symbol
	Diagnostics []exc.Exception
}

func newEntry(path string, modTime time.Time, units []*compiler.Unit) *Entry {
	e := &Entry{
		Path:    path,
		ModTime: modTime,
		Units:   units,
	}
	for _, u := range units {
		for _, perr := range u.Errors {
			e.Diagnostics = append(e.Diagnostics, perr.Exception(u.URI))
		}
		outline := symbols.Outline(u.URI, u.Document)
		if outline == nil {
			continue
		}
		e.Outlines = append(e.Outlines, outline)
		e.Symbols = append(e.Symbols, symbols.Flatten(outline)...)
		reporter := exc.NewReporter(nil)
		symbols.Collect(u.URI, u.Document, reporter)
		e.Diagnostics = append(e.Diagnostics, reporter.Reported()...)
	}
	return e
}

type IndexOption func(*Index)

// WithIndexStat replaces os.Stat as the source of modification times.
func WithIndexStat(stat func(string) (os.FileInfo, error)) IndexOption {
	return func(x *Index) {
		if stat != nil {
			x.stat = stat
		}
	}
}

func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(x *Index) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// Index maps file paths to their entries. It is safe for concurrent use.
type Index struct {
	lock    sync.RWMutex
	entries map[string]*Entry
	logger  *slog.Logger
	stat    func(string) (os.FileInfo, error)
}

func NewIndex(options ...IndexOption) *Index {
	x := &Index{
		entries: make(map[string]*Entry),
		logger:  slog.New(slog.DiscardHandler),
		stat:    os.Stat,
	}
	for _, option := range options {
		option(x)
	}
	return x
}

// Update replaces the entry of path with the given units. Change
// notifications can arrive out of order so an update carrying a modification
// time older than the indexed one is rejected with a stale update exception.
func (x *Index) Update(path string, modTime time.Time, units []*compiler.Unit) error {
	entry := newEntry(path, modTime, units)
	return x.put(entry)
}

func (x *Index) put(entry *Entry) error {
	x.lock.Lock()
	defer x.lock.Unlock()
	if prev, ok := x.entries[entry.Path]; ok && entry.ModTime.Before(prev.ModTime) {
		return exc.New(
			exc.Location{URI: entry.Path},
			exc.CodeStaleUpdate,
			fmt.Sprintf("change from %s is older than the indexed version from %s", entry.ModTime.Format(time.RFC3339Nano), prev.ModTime.Format(time.RFC3339Nano)),
		)
	}
	x.entries[entry.Path] = entry
	x.logger.Debug("indexed file", slog.String("path", entry.Path), slog.Int("symbols", len(entry.Symbols)))
	return nil
}

// Remove drops path from the index. It reports whether an entry existed.
func (x *Index) Remove(path string) bool {
	x.lock.Lock()
	defer x.lock.Unlock()
	if _, ok := x.entries[path]; !ok {
		return false
	}
	delete(x.entries, path)
	x.logger.Debug("removed file", slog.String("path", path))
	return true
}

func (x *Index) Get(path string) (*Entry, bool) {
	x.lock.RLock()
	defer x.lock.RUnlock()
	e, ok := x.entries[path]
	return e, ok
}

// Paths lists the indexed files in lexical order.
func (x *Index) Paths() []string {
	x.lock.RLock()
	defer x.lock.RUnlock()
	return x.pathsLocked()
}

func (x *Index) pathsLocked() []string {
	out := make([]string, 0, len(x.entries))
	for path := range x.entries {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (x *Index) Len() int {
	x.lock.RLock()
	defer x.lock.RUnlock()
	return len(x.entries)
}

// Symbols returns the flat symbols of every file ordered by path.
func (x *Index) Symbols() []*symbols.Symbol {
	x.lock.RLock()
	defer x.lock.RUnlock()
	var out []*symbols.Symbol
	for _, path := range x.pathsLocked() {
		out = append(out, x.entries[path].Symbols...)
	}
	return out
}

// Search fuzzy matches pattern against every symbol name in the index.
func (x *Index) Search(pattern string, limit int) []symbols.Match {
	return symbols.Search(x.Symbols(), pattern, limit)
}

// Diagnostics returns the diagnostics of every file ordered by path.
func (x *Index) Diagnostics() []exc.Exception {
	x.lock.RLock()
	defer x.lock.RUnlock()
	var out []exc.Exception
	for _, path := range x.pathsLocked() {
		out = append(out, x.entries[path].Diagnostics...)
	}
	return out
}
