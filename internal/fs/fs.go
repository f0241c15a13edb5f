// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
)

const (
	calExt  = ".cal" // Object text exported for tooling
	textExt = ".txt" // Object text exported from the development environment
)

var knownExts = map[string]idl.FileKind{
	calExt:  idl.FileKindCAL,
	textExt: idl.FileKindText,
}

// KindOf returns the file kind implied by the extension of path.
func KindOf(path string) idl.FileKind {
	return knownExts[strings.ToLower(filepath.Ext(path))]
}

var _ idl.FileSystem = FileSystemMulti{}

// FileSystemMulti is an ordered set of FileSystem implementations that are
// tried in order. Note that this type does not implement write operations.
// Those must be performed on individual backends.
type FileSystemMulti []idl.FileSystem

func (r FileSystemMulti) Open(ctx context.Context, uri string) ([]idl.File, error) {
	for _, fs := range r {
		files, err := fs.Open(ctx, uri)
		if err != nil {
			continue
		}
		return files, nil
	}
	return nil, exc.New(exc.Location{URI: uri}, exc.CodeFileNotFound, fmt.Sprintf("could not open %s from any file system", uri))
}

func (r FileSystemMulti) Write(ctx context.Context, uri string, content string) error {
	return exc.New(exc.Location{URI: uri}, exc.CodeUnsuportedFileSystemOperation, "cannot write to a composite file system")
}

// FileFilter is a filter function type used to select which files to open when
// the path being opened is a directory. Implementations should return true if
// the file should be opened, false otherwise.
type FileFilter func(ctx context.Context, fname string) bool

type FileSystemLocalOption func(*fileSystemLocal)

// WithOptionFSFactory installs a custom factory function used to generate the
// underlying file system handle. The default value is os.DirFS. The string
// value provided to the factory function is the root directory of the file
// system. All paths given to open or write are considered relative to this
// root.
func WithOptionFSFactory(v func(root string) fs.FS) FileSystemLocalOption {
	return func(rfs *fileSystemLocal) {
		rfs.fsFactory = v
	}
}

// WithOptionFileFilter installs a custom filter function used to select files
// when a target is a directory. The default value checks against the list of
// known export extensions.
func WithOptionFileFilter(v FileFilter) FileSystemLocalOption {
	return func(rfs *fileSystemLocal) {
		rfs.fileFilter = v
	}
}

// WithOptionEncoding sets the legacy code page used to decode files that are
// neither valid UTF-8 nor marked with a byte order mark.
func WithOptionEncoding(v encoding.Encoding) FileSystemLocalOption {
	return func(rfs *fileSystemLocal) {
		if v != nil {
			rfs.legacy = v
		}
	}
}

type fileSystemLocal struct {
	root       string
	fsFactory  func(string) fs.FS
	fileFilter FileFilter
	legacy     encoding.Encoding
}

// NewFileSystemLocal creates a new FileSystem that uses the local file system.
func NewFileSystemLocal(root string, options ...FileSystemLocalOption) (idl.FileSystem, error) {
	absroot, err := filepath.Abs(root)
	if err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: root}, err)
	}
	result := &fileSystemLocal{
		root:      absroot,
		fsFactory: os.DirFS,
		fileFilter: func(ctx context.Context, fname string) bool {
			return KindOf(fname) != idl.FileKindNone
		},
		legacy: charmap.CodePage850,
	}
	for _, option := range options {
		option(result)
	}
	return result, nil
}

// Open returns the export at uri or, when uri is a directory, every export
// below it in lexical path order. Text files are only included when their
// content starts with an object header.
func (r *fileSystemLocal) Open(ctx context.Context, uri string) ([]idl.File, error) {
	path := uri
	u, err := url.Parse(uri)
	if err == nil {
		path = u.Path
	}
	path = filepath.ToSlash(filepath.Join("/", path))

	dir := r.fsFactory(r.root)
	p := filepath.ToSlash(filepath.Clean(path))
	if p == "" || p == "/" {
		// If the entire path was a root then set to '.' to satisfy the
		// fs.ValidPath method which only allows, and requires, '.' when
		// it is expressing the root path.
		p = "."
	}
	// Trim the first slash character if present because fs.FS requires an
	// un-rooted path.
	p = strings.TrimPrefix(p, "/")
	stat, err := fs.Stat(dir, p)
	if err != nil {
		return nil, fsErr(p, err)
	}
	if !stat.IsDir() {
		kind := KindOf(p)
		if kind == idl.FileKindText && !r.sniff(dir, p) {
			kind = idl.FileKindNone
		}
		if kind == idl.FileKindNone {
			return nil, exc.New(exc.Location{URI: path}, exc.CodeUnsupportedFileFormat, fmt.Sprintf("%s is not an object export", path))
		}
		return []idl.File{r.file(dir, p, kind)}, nil
	}
	files := make([]idl.File, 0)
	err = fs.WalkDir(dir, p, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !r.fileFilter(ctx, name) {
			return nil
		}
		kind := KindOf(name)
		if kind == idl.FileKindText && !r.sniff(dir, name) {
			return nil
		}
		if kind == idl.FileKindNone {
			kind = idl.FileKindCAL
		}
		files = append(files, r.file(dir, name, kind))
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fsErr(p, err)
	}
	if len(files) < 1 {
		return nil, exc.New(exc.Location{URI: path}, exc.CodeFileNotFound, fmt.Sprintf("found directory %s but it holds no object exports", path))
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path(ctx) < files[j].Path(ctx)
	})
	return files, nil
}

func (r *fileSystemLocal) file(dir fs.FS, name string, kind idl.FileKind) idl.File {
	return NewFileFN(filepath.Join(r.root, filepath.FromSlash(name)), func() (io.ReadCloser, error) {
		return dir.Open(name)
	}, kind, WithFileEncoding(r.legacy))
}

func (r *fileSystemLocal) sniff(dir fs.FS, name string) bool {
	return sniffFile(func() (io.ReadCloser, error) {
		return dir.Open(name)
	})
}

// NewFileLocal wraps one file of the local file system by path. Text files
// that do not start with an object header have FileKindNone.
func NewFileLocal(path string, options ...FileOption) idl.File {
	open := func() (io.ReadCloser, error) {
		return os.Open(path)
	}
	kind := KindOf(path)
	if kind == idl.FileKindText && !sniffFile(open) {
		kind = idl.FileKindNone
	}
	return NewFileFN(path, open, kind, options...)
}

func sniffFile(open func() (io.ReadCloser, error)) bool {
	f, err := open()
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false
	}
	return SniffObject(head[:n])
}

func (r *fileSystemLocal) Write(ctx context.Context, uri string, content string) error {
	path := uri
	u, err := url.Parse(uri)
	if err == nil {
		path = u.Path
	}
	path = filepath.Join(r.root, "/", path)
	p := filepath.Clean(path)

	d := filepath.Dir(p)
	if err = os.MkdirAll(d, os.ModeDir|0o755); err != nil {
		return fsErr(d, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fsErr(p, err)
	}
	return nil
}

func fsErr(path string, err error) error {
	var errT *fs.PathError
	if errors.As(err, &errT) {
		switch {
		case errors.Is(errT.Err, fs.ErrInvalid):
			return exc.WrapUnknown(exc.Location{URI: errT.Path}, errT)
		case errors.Is(errT.Err, fs.ErrNotExist):
			return exc.Wrap(exc.Location{URI: errT.Path}, exc.CodeFileNotFound, errT)
		case errors.Is(errT.Err, fs.ErrPermission):
			return exc.Wrap(exc.Location{URI: errT.Path}, exc.CodePermissionDenied, errT)
		default:
			return exc.WrapUnknown(exc.Location{URI: errT.Path}, errT)
		}
	}
	return exc.WrapUnknown(exc.Location{URI: path}, err)
}
