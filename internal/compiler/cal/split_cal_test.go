// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/idl"
)

const multiObjectExport = "OBJECT Codeunit 50000 First\n{\n  OBJECT-PROPERTIES\n  {\n    Date=01.01.20;\n  }\n  PROPERTIES\n  {\n  }\n  CODE\n  {\n\n    BEGIN\n    END.\n  }\n}\n\n" +
	"OBJECT Table 50001 Broken\n{\n  PROPERTIES\n  {\n" +
	"OBJECT Codeunit 50002 Third\n{\n  CODE\n  {\n    VAR\n      Object@1 : Record 2000000001;\n\n    BEGIN\n    END.\n  }\n}\n"

func TestSplitObjects(t *testing.T) {
	t.Parallel()

	toks := Tokenize(multiObjectExport)
	chunks := SplitObjects(toks)
	require.Len(t, chunks, 3)

	expected := []struct {
		kind ast.ObjectKind
		id   int
		name string
	}{
		{kind: ast.ObjectKindCodeunit, id: 50000, name: "First"},
		{kind: ast.ObjectKindTable, id: 50001, name: "Broken"},
		{kind: ast.ObjectKindCodeunit, id: 50002, name: "Third"},
	}
	for offset, chunk := range chunks {
		last := chunk[len(chunk)-1]
		require.Equal(t, idl.TokenTypeEOF, last.Type)
		require.Equal(t, idl.TokenTypeKeywordObject, chunk[0].Type)
		doc, _ := Parse(chunk)
		require.NotNil(t, doc.Object)
		require.Equal(t, expected[offset].kind, doc.Object.Kind)
		require.Equal(t, expected[offset].id, doc.Object.ID)
		require.Equal(t, expected[offset].name, doc.Object.Name)
	}
	require.Equal(t, chunks[1][0].Span.Start, chunks[0][len(chunks[0])-1].Span.Start)
	require.Equal(t, int32(18), chunks[1][0].Line())
	require.Equal(t, int32(22), chunks[2][0].Line())

	doc, errs := Parse(chunks[2])
	require.Empty(t, errs)
	require.Len(t, doc.Object.Code.Variables, 1)
	require.Equal(t, "Object", doc.Object.Code.Variables[0].Name)
}

func TestSplitObjectsSingle(t *testing.T) {
	t.Parallel()

	toks := Tokenize(codeunit(""))
	chunks := SplitObjects(toks)
	require.Len(t, chunks, 1)
	require.Equal(t, toks, chunks[0])

	chunks = SplitObjects(Tokenize(""))
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
	require.Equal(t, idl.TokenTypeEOF, chunks[0][0].Type)
}
