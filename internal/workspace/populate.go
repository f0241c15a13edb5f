// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"

	"github.com/calfront/calfront/internal/compiler"
	"github.com/calfront/calfront/internal/exc"
)

// Populate compiles targets and indexes every file they expand to. Files are
// stamped with their modification time at the moment they are indexed. The
// returned error is a compiler.MultiException when any file carried
// diagnostics or could not be opened. The index is updated either way.
func (x *Index) Populate(ctx context.Context, c *compiler.Compiler, targets []string) error {
	resp, err := c.Compile(ctx, &compiler.CompileRequest{Files: targets})
	var multi compiler.MultiException
	if err != nil && !errors.As(err, &multi) {
		return err
	}
	byPath := make(map[string][]*compiler.Unit)
	order := make([]string, 0)
	for _, u := range resp.Units {
		if _, ok := byPath[u.URI]; !ok {
			order = append(order, u.URI)
		}
		byPath[u.URI] = append(byPath[u.URI], u)
	}
	for _, path := range order {
		info, serr := x.stat(path)
		if serr != nil {
			multi = append(multi, exc.WrapUnknown(exc.Location{URI: path}, serr))
			continue
		}
		if uerr := x.Update(path, info.ModTime(), byPath[path]); uerr != nil {
			var e exc.Exception
			if errors.As(uerr, &e) {
				multi = append(multi, e)
			}
		}
	}
	x.logger.Info("indexed workspace", "files", len(order))
	if len(multi) > 0 {
		return multi
	}
	return nil
}
