// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package iter

import (
	"bufio"
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/optional"
)

// invalidByteBase maps a byte that is not valid UTF-8 into the low surrogate
// range, which no valid code point uses. The byte keeps its width of one.
const invalidByteBase = 0xDC00

func invalidByte(b byte) idl.CodePoint {
	return idl.CodePoint(invalidByteBase + uint32(b))
}

// IsInvalidByte reports whether a code point stands for a single byte of
// input that was not valid UTF-8.
func IsInvalidByte(cp idl.CodePoint) bool {
	return cp >= invalidByteBase+0x80 && cp <= invalidByteBase+0xFF
}

// NewUnicodeString converts in-memory source text into an iterator of code
// points. Invalid UTF-8 bytes are yielded one at a time as code points for
// which IsInvalidByte is true.
func NewUnicodeString(s string) idl.Iterator[idl.CodePoint] {
	return &stringBody{s: s}
}

type stringBody struct {
	s      string
	offset int
}

func (b *stringBody) Next(ctx context.Context) optional.Optional[idl.CodePoint] {
	if b.offset >= len(b.s) {
		return optional.None[idl.CodePoint]()
	}
	r, size := utf8.DecodeRuneInString(b.s[b.offset:])
	if r == utf8.RuneError && size == 1 {
		cp := invalidByte(b.s[b.offset])
		b.offset = b.offset + 1
		return optional.Some(cp)
	}
	b.offset = b.offset + size
	return optional.Some(idl.CodePoint(r))
}

func (b *stringBody) Close(context.Context) error {
	return nil
}

// NewUnicodeFileBody converts a FileBody into an iterator of code points.
func NewUnicodeFileBody(b idl.FileBody) idl.Iterator[idl.CodePoint] {
	return NewUnicodeFileBodyCtx(context.Background(), b)
}

// NewUnicodeFileBodyCtx is the same as NewUnicodeFileBody but uses the given
// context for all read operations for cancellation or other purposes.
func NewUnicodeFileBodyCtx(ctx context.Context, b idl.FileBody) idl.Iterator[idl.CodePoint] {
	return newFileBody(ctx, b)
}

type fileBody struct {
	readCloser io.ReadCloser
	scanner    *bufio.Scanner
}

func newFileBody(ctx context.Context, r idl.FileBody) *fileBody {
	rc := &fileBodyIO{
		ctx:  ctx,
		body: r,
	}
	scanner := bufio.NewScanner(rc)
	scanner.Split(scanRunes)
	return &fileBody{
		readCloser: rc,
		scanner:    scanner,
	}
}

func (f *fileBody) Next(ctx context.Context) optional.Optional[idl.CodePoint] {
	if err := ctx.Err(); err != nil {
		return optional.None[idl.CodePoint]()
	}
	ok := f.scanner.Scan()
	if !ok {
		return optional.None[idl.CodePoint]()
	}
	b := f.scanner.Bytes()
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size == 1 {
		return optional.Some(invalidByte(b[0]))
	}
	return optional.Some(idl.CodePoint(r))
}

// scanRunes splits like bufio.ScanRunes but hands out invalid bytes as they
// are instead of replacing them with the encoding of U+FFFD.
func scanRunes(data []byte, atEOF bool) (int, []byte, error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if !atEOF && !utf8.FullRune(data) {
		return 0, nil, nil
	}
	_, size := utf8.DecodeRune(data)
	return size, data[:size], nil
}

func (f *fileBody) Close(context.Context) error {
	_ = f.readCloser.Close()
	return f.scanner.Err()
}

// ReadAll drains a FileBody into memory.
func ReadAll(ctx context.Context, b idl.FileBody) ([]byte, error) {
	return io.ReadAll(&fileBodyIO{ctx: ctx, body: b})
}

type fileBodyIO struct {
	ctx  context.Context
	body idl.FileBody
}

func (self *fileBodyIO) Read(p []byte) (int, error) {
	b, err := self.body.Read(self.ctx, int32(len(p)))
	if err != nil && !errors.Is(err, io.EOF) {
		return len(b), err
	}
	copy(p, b)
	if errors.Is(err, io.EOF) {
		return len(b), io.EOF
	}
	return len(b), nil
}

func (self *fileBodyIO) Close() error {
	return self.body.Close(self.ctx)
}
