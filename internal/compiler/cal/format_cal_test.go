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

func TestFormatToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		token    idl.Token
		expected string
	}{
		{
			name:     "string",
			token:    idl.Token{Type: idl.TokenTypeString, Value: "It's"},
			expected: "'It''s'",
		},
		{
			name:     "empty string",
			token:    idl.Token{Type: idl.TokenTypeString},
			expected: "''",
		},
		{
			name:     "quoted identifier",
			token:    idl.Token{Type: idl.TokenTypeQuotedIdentifier, Value: "No."},
			expected: `"No."`,
		},
		{
			name:     "keyword keeps spelling",
			token:    idl.Token{Type: idl.TokenTypeKeywordBegin, Value: "begin"},
			expected: "begin",
		},
		{
			name:     "eof",
			token:    idl.Token{Type: idl.TokenTypeEOF},
			expected: "",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, testCase.expected, FormatToken(testCase.token))
		})
	}
}

func TestFormatTokensRoundTrip(t *testing.T) {
	t.Parallel()

	for _, source := range []string{
		"Rec.SETRANGE(\"No.\",'10000','20000')",
		"x := 'O''Brien' + Text001",
		"CaptionML=[ENU=Name;DEU=Name]",
		"[Scope('O''Brien')]",
		"x  :=   'O''Brien'    + Text001",
		"Rec.SETFILTER(\n  Amount,\n    '>%1',   0)",
		"[EventSubscriber(Table,18, OnAfterInsertEvent,\"\",Skip,Skip)]",
	} {
		toks := Tokenize(source)
		require.Equal(t, source, FormatTokens(toks[:len(toks)-1]))
	}
}

func TestFormatAttribute(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", FormatAttribute(nil))
	require.Equal(t, "[External]", FormatAttribute(&ast.Attribute{Name: "External"}))

	source := "OBJECT Codeunit 50000 Attributes\n{\n  CODE\n  {\n\n    [External]\n    [Scope('O''Brien')]\n    PROCEDURE Run@1();\n    BEGIN\n    END;\n\n    BEGIN\n    END.\n  }\n}\n"
	doc, errs := Parse(Tokenize(source))
	require.Empty(t, errs)
	proc := doc.Object.Code.Procedure("Run")
	require.NotNil(t, proc)
	require.Len(t, proc.Attributes, 2)
	require.Equal(t, "[External]", FormatAttribute(proc.Attributes[0]))
	require.Equal(t, "[Scope('O''Brien')]", FormatAttribute(proc.Attributes[1]))

	spaced := "OBJECT Codeunit 50000 Attributes\n{\n  CODE\n  {\n\n    [ Scope  ('O''Brien', 'x' ) ]\n    PROCEDURE Run@1();\n    BEGIN\n    END;\n\n    BEGIN\n    END.\n  }\n}\n"
	doc, errs = Parse(Tokenize(spaced))
	require.Empty(t, errs)
	proc = doc.Object.Code.Procedure("Run")
	require.NotNil(t, proc)
	require.Len(t, proc.Attributes, 1)
	require.Equal(t, "Scope", proc.Attributes[0].Name)
	require.Equal(t, "[ Scope  ('O''Brien', 'x' ) ]", FormatAttribute(proc.Attributes[0]))
}
