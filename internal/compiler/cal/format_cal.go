// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"strings"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/idl"
)

// FormatToken renders a token the way it appears in source. It reverses the
// unescaping the lexer applies to string literals and quoted identifiers.
func FormatToken(t idl.Token) string {
	switch t.Type {
	case idl.TokenTypeString:
		return "'" + strings.ReplaceAll(t.Value, "'", "''") + "'"
	case idl.TokenTypeQuotedIdentifier:
		return `"` + t.Value + `"`
	case idl.TokenTypeEOF:
		return ""
	default:
		return t.Value
	}
}

// FormatTokens renders a token sequence. The whitespace between two tokens
// is rebuilt from their positions: spaces within a line, and line breaks
// followed by the indentation of the next token across lines. Tabs and
// carriage returns come back as spaces and plain line feeds.
func FormatTokens(toks []idl.Token) string {
	var builder strings.Builder
	for x, t := range toks {
		if x > 0 {
			_, _ = builder.WriteString(gap(toks[x-1], t))
		}
		_, _ = builder.WriteString(FormatToken(t))
	}
	return builder.String()
}

// FormatAttribute renders an attribute as [Name(args)], keeping the spacing
// of the source when the attribute was parsed from it.
func FormatAttribute(attr *ast.Attribute) string {
	if attr == nil {
		return ""
	}
	if attr.NameToken.Type == idl.TokenTypeUnknown {
		return "[" + attr.Name + FormatTokens(attr.RawTokens) + "]"
	}
	toks := make([]idl.Token, 0, len(attr.RawTokens)+3)
	toks = append(toks, attr.StartToken, attr.NameToken)
	toks = append(toks, attr.RawTokens...)
	if attr.EndToken.Type == idl.TokenTypeSquareClose {
		toks = append(toks, attr.EndToken)
	} else {
		toks = append(toks, idl.Token{Type: idl.TokenTypeSquareClose, Value: "]"})
	}
	return FormatTokens(toks)
}

// gap returns the whitespace the source had between two tokens. Tokens
// without a position are written side by side.
func gap(prev idl.Token, next idl.Token) string {
	if next.StartOffset() <= prev.EndOffset() {
		return ""
	}
	lines := next.Line() - prev.Span.End.Line
	if lines <= 0 {
		return strings.Repeat(" ", int(next.StartOffset()-prev.EndOffset()))
	}
	return strings.Repeat("\n", int(lines)) + strings.Repeat(" ", int(max(next.Column()-1, 0)))
}
