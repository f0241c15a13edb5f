// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package exc

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/idl"
)

func TestReporter(t *testing.T) {
	t.Parallel()

	r := NewReporter([]string{CodeFileNotFound})
	loc := Location{URI: "/a.cal", Location: idl.Location{Line: 3, Column: 7}}

	require.Nil(t, r.Report(New(loc, CodeUnexpectedToken, "unexpected ;")))
	require.Nil(t, r.Report(New(loc, CodeFileNotFound, "missing")))
	fatal := r.Report(New(loc, CodeUnknownFatal, "boom"))
	require.NotNil(t, fatal)
	require.Equal(t, CodeUnknownFatal, fatal.Code())

	reported := r.Reported()
	require.Len(t, reported, 3)
	require.Equal(t, "/a.cal:3:7 -- C0007: unexpected ;", reported[0].Error())
}

func TestReporterConcurrent(t *testing.T) {
	t.Parallel()

	r := NewReporter(nil)
	var wg sync.WaitGroup
	for x := 0; x < 50; x = x + 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Report(New(Location{}, CodeUnexpectedToken, "x"))
		}()
	}
	wg.Wait()
	require.Len(t, r.Reported(), 50)
}

func TestReporterDiscard(t *testing.T) {
	t.Parallel()

	r := NewReporterDiscard()
	require.Nil(t, r.Report(New(Location{}, CodeUnexpectedToken, "x")))
	require.NotNil(t, r.Report(New(Location{}, CodeUnknownFatal, "x")))
	require.Empty(t, r.Reported())
}

func TestWrap(t *testing.T) {
	t.Parallel()

	require.Nil(t, Wrap(Location{}, CodeEOF, nil))

	e := Wrap(Location{URI: "/x"}, CodeEOF, io.EOF)
	require.True(t, errors.Is(e, io.EOF))
	require.Equal(t, CodeEOF, e.Code())

	moved := WithURI(New(Location{Location: idl.Location{Line: 1, Column: 2}}, CodeUnexpectedToken, "bad"), "/y.cal")
	require.Equal(t, "/y.cal", moved.Location().URI)
	require.Equal(t, int32(2), moved.Location().Column)
	require.Equal(t, "bad", moved.Message())
}
