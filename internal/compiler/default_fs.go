// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"os"
	"path/filepath"

	"github.com/calfront/calfront/internal/fs"
	"github.com/calfront/calfront/internal/idl"
)

// EnvRoots names the environment variable holding a list of export
// directories, separated like PATH, that replaces the default roots.
const EnvRoots = "CALFRONT_PATH"

// NewDefaultFS searches the current directory and then the shared export
// directories of the platform.
func NewDefaultFS(lookup func(string) (string, bool), options ...fs.FileSystemLocalOption) (idl.FileSystem, error) {
	roots := []string{"."}
	if v, ok := lookup(EnvRoots); ok && v != "" {
		roots = append(roots, filepath.SplitList(v)...)
	} else {
		roots = append(roots, getDefaultRoots(lookup)...)
	}
	f := make(fs.FileSystemMulti, 0, len(roots))
	for _, root := range roots {
		absRoot, errAbs := filepath.Abs(os.Expand(root, func(s string) string {
			v, _ := lookup(s)
			return v
		}))
		if errAbs != nil {
			return nil, errAbs
		}
		rf, err := fs.NewFileSystemLocal(absRoot, options...)
		if err != nil {
			return nil, err
		}
		f = append(f, rf)
	}
	return f, nil
}
