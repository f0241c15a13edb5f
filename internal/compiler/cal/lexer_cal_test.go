// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/iter"
)

type lexed struct {
	kind  idl.TokenType
	value string
}

func simplify(toks []idl.Token) []lexed {
	out := make([]lexed, 0, len(toks))
	for _, t := range toks {
		out = append(out, lexed{kind: t.Type, value: t.Value})
	}
	return out
}

func countTokens(toks []idl.Token, kind idl.TokenType) int {
	n := 0
	for _, t := range toks {
		if t.Type == kind {
			n = n + 1
		}
	}
	return n
}

const sampleCodeunit = `OBJECT Codeunit 50000 Sample Codeunit
{
  OBJECT-PROPERTIES
  {
    Date=01.02.21;
    Version List=NAVW17.00;
  }
  PROPERTIES
  {
    OnRun=BEGIN
            { property code may hold a brace comment }
            Counter := 1;
          END;

  }
  CODE
  {
    VAR
      Counter@1000 : Integer;
      Page@1001 : Page 21;
      Code@1002 : Code[20];

    PROCEDURE Run@1(VAR Rec@1000 : Record 18) : Boolean;
    BEGIN
      // line comment
      IF Rec."No." <> '' THEN /* block */
        EXIT(Rec.Amount >= 1.5);
      Code := 'It''s';
    END;

    BEGIN
    {
      Documentation { nested }
    }
    END.
  }
}
`

func TestTokenize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []lexed
	}{
		{
			name:     "empty",
			input:    "",
			expected: []lexed{{kind: idl.TokenTypeEOF}},
		},
		{
			name:  "assignment",
			input: "x := 1;",
			expected: []lexed{
				{kind: idl.TokenTypeIdentifier, value: "x"},
				{kind: idl.TokenTypeAssign, value: ":="},
				{kind: idl.TokenTypeInteger, value: "1"},
				{kind: idl.TokenTypeSemicolon, value: ";"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "escaped quote",
			input: "'It''s'",
			expected: []lexed{
				{kind: idl.TokenTypeString, value: "It's"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "empty string",
			input: "''",
			expected: []lexed{
				{kind: idl.TokenTypeString, value: ""},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "quoted identifier",
			input: `"No." := 5`,
			expected: []lexed{
				{kind: idl.TokenTypeQuotedIdentifier, value: "No."},
				{kind: idl.TokenTypeAssign, value: ":="},
				{kind: idl.TokenTypeInteger, value: "5"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "literals",
			input: "1.5 0D 120000T 0DT 10 1..5",
			expected: []lexed{
				{kind: idl.TokenTypeDecimal, value: "1.5"},
				{kind: idl.TokenTypeDate, value: "0D"},
				{kind: idl.TokenTypeTime, value: "120000T"},
				{kind: idl.TokenTypeDateTime, value: "0DT"},
				{kind: idl.TokenTypeInteger, value: "10"},
				{kind: idl.TokenTypeInteger, value: "1"},
				{kind: idl.TokenTypeDotDot, value: ".."},
				{kind: idl.TokenTypeInteger, value: "5"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "operators",
			input: "a::b += -= *= /= <> <= >= < > = .",
			expected: []lexed{
				{kind: idl.TokenTypeIdentifier, value: "a"},
				{kind: idl.TokenTypeDoubleColon, value: "::"},
				{kind: idl.TokenTypeIdentifier, value: "b"},
				{kind: idl.TokenTypePlusAssign, value: "+="},
				{kind: idl.TokenTypeMinusAssign, value: "-="},
				{kind: idl.TokenTypeMultiplyAssign, value: "*="},
				{kind: idl.TokenTypeDivideAssign, value: "/="},
				{kind: idl.TokenTypeNotEqual, value: "<>"},
				{kind: idl.TokenTypeLesserEqual, value: "<="},
				{kind: idl.TokenTypeGreaterEqual, value: ">="},
				{kind: idl.TokenTypeAngleOpen, value: "<"},
				{kind: idl.TokenTypeAngleClose, value: ">"},
				{kind: idl.TokenTypeEqual, value: "="},
				{kind: idl.TokenTypeDot, value: "."},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "comments",
			input: "// hi\nx /* a */ y",
			expected: []lexed{
				{kind: idl.TokenTypeComment, value: " hi"},
				{kind: idl.TokenTypeIdentifier, value: "x"},
				{kind: idl.TokenTypeComment, value: " a "},
				{kind: idl.TokenTypeIdentifier, value: "y"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "keywords are case insensitive",
			input: "begin END If",
			expected: []lexed{
				{kind: idl.TokenTypeKeywordBegin, value: "begin"},
				{kind: idl.TokenTypeKeywordEnd, value: "END"},
				{kind: idl.TokenTypeKeywordIf, value: "If"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "id suffix",
			input: "Page@1 If@2 Cust@1000 \"Sales Line\"@3",
			expected: []lexed{
				{kind: idl.TokenTypeIdentifier, value: "Page"},
				{kind: idl.TokenTypeKeywordIf, value: "If"},
				{kind: idl.TokenTypeIdentifier, value: "Cust"},
				{kind: idl.TokenTypeQuotedIdentifier, value: "Sales Line"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "unterminated string",
			input: "x := 'abc\ny",
			expected: []lexed{
				{kind: idl.TokenTypeIdentifier, value: "x"},
				{kind: idl.TokenTypeAssign, value: ":="},
				{kind: idl.TokenTypeUnknown, value: "'abc"},
				{kind: idl.TokenTypeIdentifier, value: "y"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "unknown character",
			input: "a ? b",
			expected: []lexed{
				{kind: idl.TokenTypeIdentifier, value: "a"},
				{kind: idl.TokenTypeUnknown, value: "?"},
				{kind: idl.TokenTypeIdentifier, value: "b"},
				{kind: idl.TokenTypeEOF},
			},
		},
		{
			name:  "byte order mark",
			input: "\uFEFFOBJECT",
			expected: []lexed{
				{kind: idl.TokenTypeKeywordObject, value: "OBJECT"},
				{kind: idl.TokenTypeEOF},
			},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, testCase.expected, simplify(Tokenize(testCase.input)))
		})
	}
}

func TestTokenizeAllowedKeywordsWithSuffix(t *testing.T) {
	t.Parallel()

	for _, word := range AllowedKeywords() {
		toks := Tokenize(word + "@1000 : Integer;")
		require.Equal(t, idl.TokenTypeIdentifier, toks[0].Type, word)
		require.Equal(t, word, toks[0].Value)
		require.Equal(t, int64(len(word)+5), toks[0].EndOffset())
	}
}

func TestTokenizeSpans(t *testing.T) {
	t.Parallel()

	for _, source := range []string{
		sampleCodeunit,
		strings.ReplaceAll(sampleCodeunit, "\n", "\r\n"),
		"x := 'ÄÖÜ' + \"Straße\"; // größe\ny := 2;",
		"x := 'a\xffb' + \xfe1;\n\xc3 y := 2;",
	} {
		toks := Tokenize(source)
		require.NotEmpty(t, toks)
		var prev int64
		for x, tok := range toks {
			start := tok.StartOffset()
			end := tok.EndOffset()
			require.LessOrEqual(t, prev, start, "token %d overlaps its predecessor", x)
			require.LessOrEqual(t, start, end)
			require.Empty(t, strings.TrimSpace(source[prev:start]), "unexpected text before token %d", x)

			lineStart := strings.LastIndexByte(source[:start], '\n') + 1
			require.Equal(t, int32(strings.Count(source[:start], "\n")+1), tok.Line(), "line of token %d", x)
			require.Equal(t, int32(utf8.RuneCountInString(source[lineStart:start])+1), tok.Column(), "column of token %d", x)
			prev = end
		}
		last := toks[len(toks)-1]
		require.Equal(t, idl.TokenTypeEOF, last.Type)
		require.Equal(t, int64(len(source)), last.StartOffset())
		require.Equal(t, last.StartOffset(), last.EndOffset())
	}
}

func TestTokenizeBraces(t *testing.T) {
	t.Parallel()

	toks := Tokenize(sampleCodeunit)
	// Object body, OBJECT-PROPERTIES, PROPERTIES and CODE.
	require.Equal(t, 4, countTokens(toks, idl.TokenTypeCurlyOpen))
	require.Equal(t, 4, countTokens(toks, idl.TokenTypeCurlyClose))

	var comments []string
	for _, tok := range toks {
		if tok.Type == idl.TokenTypeComment {
			comments = append(comments, tok.Value)
		}
	}
	require.Equal(t, []string{
		" property code may hold a brace comment ",
		" line comment",
		" block ",
		"\n      Documentation { nested }\n    ",
	}, comments)

	var names []lexed
	for x, tok := range toks {
		if x+1 < len(toks) && toks[x+1].Type == idl.TokenTypeColon && tok.Line() > 18 && tok.Line() < 22 {
			names = append(names, lexed{kind: tok.Type, value: tok.Value})
		}
	}
	require.Equal(t, []lexed{
		{kind: idl.TokenTypeIdentifier, value: "Counter"},
		{kind: idl.TokenTypeIdentifier, value: "Page"},
		{kind: idl.TokenTypeIdentifier, value: "Code"},
	}, names)
}

func TestTokenizeSectionsDoNotLeak(t *testing.T) {
	t.Parallel()

	source := "OBJECT Table 1 T\n{\n  CODE\n  {\n    BEGIN\n    END.\n  }\n  PROPERTIES\n  {\n    CaptionML=[ENU=X];\n  }\n  FIELDS\n  {\n    { 1 ; ;No. ;Code20 }\n  }\n}\n"
	toks := Tokenize(source)
	require.Equal(t, 5, countTokens(toks, idl.TokenTypeCurlyOpen))
	require.Equal(t, 5, countTokens(toks, idl.TokenTypeCurlyClose))
	require.Equal(t, 0, countTokens(toks, idl.TokenTypeComment))

	// Lexing is independent of anything lexed before.
	_ = Tokenize("OBJECT Table 2 Broken\n{\n  CODE\n  {\n    BEGIN\n")
	require.Equal(t, toks, Tokenize(source))
}

func TestTokenizeRawData(t *testing.T) {
	t.Parallel()

	source := "OBJECT Report 50000 Layout\n{\n  RDLDATA\n  {\n    <Report>{ not a brace } 'not a string</Report>\n    END_OF_RDLDATA\n  }\n  WORDLAYOUT\n  {\n  }\n}\n"
	toks := Tokenize(source)
	require.Equal(t, 1, countTokens(toks, idl.TokenTypeRawData))
	for x, tok := range toks {
		if tok.Type != idl.TokenTypeRawData {
			continue
		}
		require.Equal(t, "<Report>{ not a brace } 'not a string</Report>", tok.Value)
		require.True(t, strings.HasSuffix(source[:tok.EndOffset()], "END_OF_RDLDATA"))
		require.Equal(t, idl.TokenTypeCurlyClose, toks[x+1].Type)
	}
	require.Equal(t, 3, countTokens(toks, idl.TokenTypeCurlyOpen))
	require.Equal(t, 3, countTokens(toks, idl.TokenTypeCurlyClose))
}

func TestTokenizeFreeText(t *testing.T) {
	t.Parallel()

	source := "OBJECT Table 27 Item\n{\n  FIELDS\n  {\n    { 3 ; ;Customer's Ref ;Text30 ;CaptionML=ENU=Customer's Ref }\n  }\n  CODE\n  {\n    BEGIN\n      x := 'It''s';\n    END.\n  }\n}\n"
	toks := Tokenize(source)
	// The apostrophes stand for themselves and the braces stay balanced.
	require.Equal(t, 4, countTokens(toks, idl.TokenTypeCurlyOpen))
	require.Equal(t, 4, countTokens(toks, idl.TokenTypeCurlyClose))
	require.Equal(t, 1, countTokens(toks, idl.TokenTypeString))
	var quotes int
	for _, tok := range toks {
		if tok.Type == idl.TokenTypeUnknown {
			require.Equal(t, "'", tok.Value)
			require.Equal(t, int64(1), tok.EndOffset()-tok.StartOffset())
			quotes = quotes + 1
		}
		if tok.Type == idl.TokenTypeString {
			require.Equal(t, "It's", tok.Value)
		}
	}
	require.Equal(t, 2, quotes)
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	t.Parallel()

	source := "x := \xff;\ny"
	toks := Tokenize(source)
	require.Equal(t, []lexed{
		{kind: idl.TokenTypeIdentifier, value: "x"},
		{kind: idl.TokenTypeAssign, value: ":="},
		{kind: idl.TokenTypeUnknown, value: string(utf8.RuneError)},
		{kind: idl.TokenTypeSemicolon, value: ";"},
		{kind: idl.TokenTypeIdentifier, value: "y"},
		{kind: idl.TokenTypeEOF},
	}, simplify(toks))
	require.Equal(t, int64(5), toks[2].StartOffset())
	require.Equal(t, int64(6), toks[2].EndOffset())
	require.Equal(t, int64(6), toks[3].StartOffset())
	require.Equal(t, int64(8), toks[4].StartOffset())
	require.Equal(t, int64(len(source)), toks[5].StartOffset())
}

func TestLexerReports(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		codes []string
	}{
		{name: "clean", input: "x := 'a';"},
		{name: "unterminated string", input: "x := 'a\n", codes: []string{exc.CodeUnterminatedString}},
		{name: "unterminated identifier", input: `"No.`, codes: []string{exc.CodeUnterminatedString}},
		{name: "unterminated block comment", input: "/* open", codes: []string{exc.CodeUnterminatedComment}},
		{name: "invalid character", input: "a ? b", codes: []string{exc.CodeInvalidCharacter}},
		{name: "invalid character in code", input: "OBJECT Codeunit 1 C\n{\n  CODE\n  {\n    BEGIN\n      x := a ? b;\n    END.\n  }\n}\n", codes: []string{exc.CodeInvalidCharacter}},
		{name: "unterminated string in property trigger", input: "OBJECT Codeunit 1 C\n{\n  PROPERTIES\n  {\n    OnRun=BEGIN\n            x := 'a\n          END;\n  }\n}\n", codes: []string{exc.CodeUnterminatedString}},
		{name: "free text in header", input: "OBJECT Report 1 Customer's Top 10 %\n{\n}\n"},
		{name: "free text in properties", input: "OBJECT Page 1 P\n{\n  PROPERTIES\n  {\n    CaptionML=ENU=Sales & Receivables?;\n  }\n}\n"},
		{name: "free text in fields", input: "OBJECT Table 27 Item\n{\n  FIELDS\n  {\n    { 1 ; ;Customer's Ref ;Text30 }\n    { 2 ; ;Profit % ;Decimal ;CaptionML=ENU=Profit % }\n    { 3 ; ;Size 5\" ;Decimal }\n  }\n}\n"},
		{name: "raw data without marker", input: "OBJECT Report 1 R\n{\n  RDLDATA\n  {\n    <x/>", codes: []string{exc.CodeUnexpectedEOF}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			reporter := exc.NewReporter(nil)
			points := iter.NewLookahead(iter.NewUnicodeString(testCase.input), lexerCALLookahead)
			toks, err := iter.Collect(ctx, newLexerTokens("test.cal", points, reporter))
			require.NoError(t, err)
			require.Equal(t, idl.TokenTypeEOF, toks[len(toks)-1].Type)
			var codes []string
			for _, e := range reporter.Reported() {
				codes = append(codes, e.Code())
				require.Equal(t, "test.cal", e.Location().URI)
			}
			require.Equal(t, testCase.codes, codes)
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	source := strings.Repeat(sampleCodeunit, 20)
	b.SetBytes(int64(len(source)))
	b.ResetTimer()
	for n := 0; n < b.N; n = n + 1 {
		_ = Tokenize(source)
	}
}
