// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"errors"

	"github.com/calfront/calfront/internal/compiler/cal"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
)

// SubCompiler turns one file of a given kind into its parsed objects.
type SubCompiler interface {
	CompileFile(ctx context.Context, r exc.Reporter, file idl.File) ([]*Unit, error)
}

func DefaultSubCompilers() map[idl.FileKind]SubCompiler {
	sccal := &SubCompilerCAL{}
	return map[idl.FileKind]SubCompiler{
		idl.FileKindCAL:  sccal,
		idl.FileKindText: sccal,
	}
}

// SubCompilerCAL reads C/AL object text. Multi-object exports are split and
// every object is parsed on its own so a broken object never affects the
// objects around it.
type SubCompilerCAL struct{}

func (self *SubCompilerCAL) CompileFile(ctx context.Context, r exc.Reporter, file idl.File) ([]*Unit, error) {
	path := file.Path(ctx)
	lf, err := cal.NewLexer(r).Lex(ctx, file)
	if err != nil {
		return nil, r.Report(exc.WrapUnknown(exc.Location{URI: path}, err))
	}
	tokens, err := lf.Tokens(ctx)
	if err != nil {
		var e exc.Exception
		if errors.As(err, &e) {
			e = exc.WithURI(e, path)
		} else {
			e = exc.WrapUnknown(exc.Location{URI: path}, err)
		}
		return nil, r.Report(e)
	}
	parser := cal.NewParser(r)
	chunks := cal.SplitObjects(tokens)
	units := make([]*Unit, 0, len(chunks))
	for offset, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, errs := parser.Parse(ctx, path, chunk)
		units = append(units, &Unit{
			URI:      path,
			Index:    offset,
			Tokens:   chunk,
			Document: doc,
			Errors:   errs,
		})
	}
	return units, nil
}
