// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"slices"

	"github.com/calfront/calfront/internal/idl"
)

// SplitObjects cuts the token stream of a multi-object export into one stream
// per object. A new object starts at an OBJECT header outside of any braces,
// or at an OBJECT header in the first column when the previous object was
// never closed. Every stream ends with an EOF token and keeps the positions
// of the original file.
func SplitObjects(tokens []idl.Token) [][]idl.Token {
	var chunks [][]idl.Token
	start := 0
	depth := 0
	seen := false
	for offset, t := range tokens {
		switch t.Type {
		case idl.TokenTypeCurlyOpen:
			depth = depth + 1
		case idl.TokenTypeCurlyClose:
			if depth > 0 {
				depth = depth - 1
			}
		case idl.TokenTypeKeywordObject:
			if !startsObject(tokens, offset) {
				continue
			}
			if depth > 0 && t.Span.Start.Column != 1 {
				continue
			}
			if seen {
				chunk := slices.Clone(tokens[start:offset])
				chunk = append(chunk, idl.Token{
					Span: idl.Span{Start: t.Span.Start, End: t.Span.Start},
					Type: idl.TokenTypeEOF,
				})
				chunks = append(chunks, chunk)
				start = offset
			}
			seen = true
			depth = 0
		}
	}
	return append(chunks, tokens[start:])
}

// startsObject reports whether the OBJECT keyword at offset is followed by an
// object type and an id.
func startsObject(tokens []idl.Token, offset int) bool {
	var next []idl.Token
	for _, t := range tokens[offset+1:] {
		if t.Type == idl.TokenTypeComment {
			continue
		}
		next = append(next, t)
		if len(next) == 2 {
			break
		}
	}
	if len(next) < 2 {
		return false
	}
	_, ok := objectKinds[next[0].Type]
	return ok && next[1].Type == idl.TokenTypeInteger
}
