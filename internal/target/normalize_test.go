// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		target   string
		expected string
	}{
		{target: "objects/Tab18.txt", expected: filepath.FromSlash("/objects/Tab18.txt")},
		{target: "/objects/Tab18.txt", expected: "/objects/Tab18.txt"},
		{target: "file:///objects/Cod80.cal", expected: "/objects/Cod80.cal"},
		{target: "https://example.com/Tab18.txt", expected: "https://example.com/Tab18.txt"},
		{target: ".", expected: filepath.FromSlash("/")},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.target, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, testCase.expected, Normalize(testCase.target))
		})
	}
}

func TestRelative(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/objects")
	rel, ok := Relative(root, filepath.Join(root, "sub", "Tab18.txt"))
	require.True(t, ok)
	require.Equal(t, filepath.FromSlash("/sub/Tab18.txt"), rel)

	_, ok = Relative(root, filepath.FromSlash("/work/other/Tab18.txt"))
	require.False(t, ok)
}
