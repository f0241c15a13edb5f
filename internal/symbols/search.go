// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package symbols

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/calfront/calfront/internal/idl"
)

// Match is one search result. Indexes are the positions in Name that
// matched the pattern.
type Match struct {
	Symbol  *Symbol
	Score   int
	Indexes []int
}

type symbolSource []*Symbol

func (s symbolSource) String(i int) string {
	return s[i].Name
}

func (s symbolSource) Len() int {
	return len(s)
}

// Search ranks symbols by how well their names fuzzy match pattern. An empty
// pattern matches everything in the given order. A limit below one returns
// every match.
func Search(syms []*Symbol, pattern string, limit int) []Match {
	var out []Match
	if pattern == "" {
		out = make([]Match, 0, len(syms))
		for _, s := range syms {
			out = append(out, Match{Symbol: s})
		}
	} else {
		matches := fuzzy.FindFrom(pattern, symbolSource(syms))
		out = make([]Match, 0, len(matches))
		for _, m := range matches {
			out = append(out, Match{Symbol: syms[m.Index], Score: m.Score, Indexes: m.MatchedIndexes})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TokenAt returns the token covering a byte offset. Tokens must be in source
// order. Offsets in whitespace, in comments filtered out of the slice or at
// the end of input find nothing.
func TokenAt(tokens []idl.Token, offset int64) (idl.Token, bool) {
	x := sort.Search(len(tokens), func(i int) bool {
		return tokens[i].Span.End.Offset > offset
	})
	if x == len(tokens) || tokens[x].Span.Start.Offset > offset {
		return idl.Token{}, false
	}
	return tokens[x], true
}
