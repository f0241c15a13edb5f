// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/calfront/calfront/internal/compiler"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/fs"
	"github.com/calfront/calfront/internal/idl"
)

const DefaultDebounce = 200 * time.Millisecond

type WatcherOption func(*Watcher)

// WithWatcherDebounce sets how long the watcher waits for a burst of changes
// to settle before re-reading files.
func WithWatcherDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWatcherFileOptions are applied to every file the watcher re-reads.
func WithWatcherFileOptions(options ...fs.FileOption) WatcherOption {
	return func(w *Watcher) {
		w.fileOptions = append(w.fileOptions, options...)
	}
}

// WithWatcherOnFlush installs a callback that runs after every batch of
// changes was applied to the index.
func WithWatcherOnFlush(fn func(paths []string)) WatcherOption {
	return func(w *Watcher) {
		w.onFlush = fn
	}
}

// Watcher keeps an Index current with the export files below a set of root
// directories.
type Watcher struct {
	compiler    *compiler.Compiler
	index       *Index
	roots       []string
	debounce    time.Duration
	logger      *slog.Logger
	fileOptions []fs.FileOption
	onFlush     func([]string)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	pending map[string]bool
	timer   *time.Timer
}

func NewWatcher(c *compiler.Compiler, index *Index, roots []string, options ...WatcherOption) *Watcher {
	w := &Watcher{
		compiler: c,
		index:    index,
		roots:    roots,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		pending:  make(map[string]bool),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Start watches every directory below the roots. Directories created later
// are watched as they appear. The context bounds the re-reads triggered by
// changes.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return exc.WrapUnknown(exc.Location{}, err)
	}
	w.mu.Lock()
	w.watcher = watcher
	w.done = make(chan struct{})
	w.mu.Unlock()

	for _, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			w.Stop()
			return exc.WrapUnknown(exc.Location{URI: root}, err)
		}
		if err := w.addTree(watcher, abs, false); err != nil {
			w.Stop()
			return err
		}
		w.logger.Info("watching for changes", "root", abs)
	}

	go w.watchLoop(ctx, watcher)
	return nil
}

// Stop ends watching. Changes that are still waiting for the debounce delay
// are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	watcher := w.watcher
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if watcher != nil {
		close(w.done)
		watcher.Close()
	}
}

func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string, queue bool) error {
	return filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fsWalkErr(path, err)
			}
			w.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			if queue && fs.KindOf(path) != idl.FileKindNone {
				w.queue(path)
			}
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fsWalkErr(path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return

		case <-ctx.Done():
			w.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name, true); err != nil {
						w.logger.Error("failed to watch directory", "path", event.Name, "error", err)
					}
					w.schedule(ctx)
					continue
				}
			}
			if fs.KindOf(event.Name) == idl.FileKindNone {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("export changed", "path", event.Name, "event", event.Op.String())
			w.queue(event.Name)
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) queue(path string) {
	w.mu.Lock()
	w.pending[path] = true
	w.mu.Unlock()
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.flush(ctx)
	})
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	sort.Strings(paths)
	for _, path := range paths {
		if err := w.Refresh(ctx, path); err != nil {
			var e exc.Exception
			if errors.As(err, &e) && e.Code() == exc.CodeStaleUpdate {
				w.logger.Debug("ignored stale change", "path", path)
				continue
			}
			w.logger.Error("failed to index file", "path", path, "error", err)
		}
	}
	w.logger.Info("reindexed", "files", len(paths))
	if w.onFlush != nil {
		w.onFlush(paths)
	}
}

// Refresh brings the entry of one file in line with the disk. Missing files
// and files that are not object exports are removed from the index.
func (w *Watcher) Refresh(ctx context.Context, path string) error {
	return w.index.refresh(ctx, w.compiler, path, w.fileOptions...)
}

func (x *Index) refresh(ctx context.Context, c *compiler.Compiler, path string, options ...fs.FileOption) error {
	info, err := x.stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			x.Remove(path)
			return nil
		}
		return exc.WrapUnknown(exc.Location{URI: path}, err)
	}
	if info.IsDir() {
		return nil
	}
	file := fs.NewFileLocal(path, options...)
	if file.Kind(ctx) == idl.FileKindNone {
		x.Remove(path)
		return nil
	}
	units, err := c.CompileFile(ctx, exc.NewReporter(nil), file)
	if err != nil {
		return err
	}
	return x.Update(path, info.ModTime(), units)
}

func fsWalkErr(path string, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return exc.Wrap(exc.Location{URI: path}, exc.CodeFileNotFound, err)
	}
	if errors.Is(err, iofs.ErrPermission) {
		return exc.Wrap(exc.Location{URI: path}, exc.CodePermissionDenied, err)
	}
	return exc.WrapUnknown(exc.Location{URI: path}, err)
}
