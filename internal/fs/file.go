// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"bytes"
	"context"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
)

// FileOption customizes files created by NewFileFN.
type FileOption func(*fileIOFunc)

// WithFileEncoding sets the legacy code page used when the content is not
// valid UTF-8 and carries no byte order mark.
func WithFileEncoding(enc encoding.Encoding) FileOption {
	return func(f *fileIOFunc) {
		if enc != nil {
			f.legacy = enc
		}
	}
}

// NewFileString wraps static string content in idl.File.
func NewFileString(path string, content string, kind idl.FileKind) idl.File {
	return NewFileFN(path, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}, kind)
}

type fileIOFunc struct {
	path   string
	kind   idl.FileKind
	legacy encoding.Encoding
	body   func() (io.ReadCloser, error)
}

// NewFileFN is intended to wrap actual file based content in the idl.File
// interface. The given body function is used each time there is a call to the
// idl.File.Body method so it must return a new io.ReadCloser handle. The body
// is decoded to UTF-8 before it is handed out.
func NewFileFN(path string, body func() (io.ReadCloser, error), kind idl.FileKind, options ...FileOption) idl.File {
	f := &fileIOFunc{
		path: path,
		kind: kind,
		body: body,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

func (f *fileIOFunc) Path(ctx context.Context) string {
	return f.path
}
func (f *fileIOFunc) Kind(ctx context.Context) idl.FileKind {
	return f.kind
}
func (f *fileIOFunc) Body(ctx context.Context) (idl.FileBody, error) {
	rc, err := f.body()
	if err != nil {
		return nil, fsErr(f.path, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: f.path}, err)
	}
	text, err := Decode(raw, f.legacy)
	if err != nil {
		return nil, exc.Wrap(exc.Location{URI: f.path}, exc.CodeEncoding, err)
	}
	return bodyFromIO(io.NopCloser(bytes.NewReader(text))), nil
}
