// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/idl"
)

func TestLookupKeyword(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		word     string
		expected idl.TokenType
		found    bool
	}{
		{word: "BEGIN", expected: idl.TokenTypeKeywordBegin, found: true},
		{word: "begin", expected: idl.TokenTypeKeywordBegin, found: true},
		{word: "Begin", expected: idl.TokenTypeKeywordBegin, found: true},
		{word: "DownTo", expected: idl.TokenTypeKeywordDownTo, found: true},
		{word: "XMLport", expected: idl.TokenTypeKeywordXMLport, found: true},
		{word: "SecurityFiltering", expected: idl.TokenTypeKeywordSecurityFiltering, found: true},
		{word: "Customer", found: false},
		{word: "", found: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.word, func(t *testing.T) {
			t.Parallel()
			actual, ok := LookupKeyword(testCase.word)
			require.Equal(t, testCase.found, ok)
			if ok {
				require.Equal(t, testCase.expected, actual)
			}
		})
	}
}

func TestKeywordTableCoversEveryKeyword(t *testing.T) {
	t.Parallel()

	seen := make(map[idl.TokenType]bool)
	for _, kind := range keywords {
		seen[kind] = true
	}
	for kind := idl.TokenTypeKeywordObject; kind <= idl.TokenTypeKeywordIn; kind = kind + 1 {
		require.True(t, seen[kind], "missing spelling for %s", kind)
		require.True(t, kind.IsKeyword())
	}
}

func TestReservedWords(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"If", "While", "Begin", "End", "Div", "And", "Procedure", "Var", "True"} {
		kind, ok := LookupKeyword(word)
		require.True(t, ok)
		require.True(t, IsReserved(kind), word)
		require.False(t, IsAllowedAsIdentifier(kind), word)
	}
	for _, word := range []string{"Page", "Report", "Code", "Fields", "Temporary", "Object"} {
		kind, ok := LookupKeyword(word)
		require.True(t, ok)
		require.False(t, IsReserved(kind), word)
		require.True(t, IsAllowedAsIdentifier(kind), word)
	}
	require.True(t, IsAllowedAsIdentifier(idl.TokenTypeIdentifier))
	require.False(t, IsReserved(idl.TokenTypeIdentifier))
	require.False(t, IsAllowedAsIdentifier(idl.TokenTypeInteger))
}

func TestAllowedKeywords(t *testing.T) {
	t.Parallel()

	words := AllowedKeywords()
	require.True(t, slices.IsSorted(words))
	require.Contains(t, words, "page")
	require.Contains(t, words, "code")
	require.Contains(t, words, "temporary")
	require.NotContains(t, words, "begin")
	require.Len(t, words, len(allowedAsIdentifier))
	for _, word := range words {
		kind, ok := LookupKeyword(word)
		require.True(t, ok)
		require.True(t, IsAllowedAsIdentifier(kind))
	}
}

func TestSectionKeywords(t *testing.T) {
	t.Parallel()

	require.True(t, IsSectionKeyword(idl.TokenTypeKeywordCode))
	require.True(t, IsSectionKeyword(idl.TokenTypeKeywordRequestPage))
	require.False(t, IsSectionKeyword(idl.TokenTypeKeywordObject))
	require.False(t, IsSectionKeyword(idl.TokenTypeIdentifier))
}
