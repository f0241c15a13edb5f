// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Normalize processes a given compile target and converts it into a standard
// form.
//
// Targets may be any valid URI or file path. When the target is a file path or
// a file URI then the path is converted to a rooted form that is resolved
// against the roots of the file system. All non-file URIs are left as-is.
func Normalize(target string) string {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "" && u.Scheme != "file") {
		return target
	}
	if u.Scheme == "file" {
		target = u.Path
	}
	if !filepath.IsAbs(target) {
		return filepath.Join("/", target)
	}
	return target
}

// Relative converts an absolute path found below root into a target for a
// file system rooted at root. The second value is false when path is outside
// of root.
func Relative(root string, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return Normalize(filepath.ToSlash(rel)), true
}
