// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package symbols

import (
	"fmt"
	"sort"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
)

// Scope is one level of name resolution. Lookups that miss climb to the
// parent scope.
type Scope struct {
	Owner   *Symbol
	Parent  *Scope
	symbols map[string]*Symbol
	order   []*Symbol
}

func newScope(parent *Scope, owner *Symbol) *Scope {
	return &Scope{
		Owner:   owner,
		Parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Define adds sym to the scope. When the name is already declared in this
// scope the earlier symbol is returned and sym is not added.
func (s *Scope) Define(sym *Symbol) *Symbol {
	key := foldName(sym.Name)
	if prev, ok := s.symbols[key]; ok {
		return prev
	}
	s.symbols[key] = sym
	s.order = append(s.order, sym)
	return nil
}

// Lookup resolves a name case-insensitively through the scope chain.
func (s *Scope) Lookup(name string) *Symbol {
	key := foldName(name)
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.symbols[key]; ok {
			return sym
		}
	}
	return nil
}

// Symbols returns the declarations of this scope in definition order.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, len(s.order))
	copy(out, s.order)
	return out
}

// Table resolves names within one object. Fields form the outermost scope,
// then the globals of CODE, then one scope per procedure or trigger.
type Table struct {
	URI    string
	Object *Symbol
	Fields *Scope
	Global *Scope
	scopes map[ast.Node]*Scope
	// routines are sorted by start offset.
	routines []routineScope
}

type routineScope struct {
	symbol *Symbol
	scope  *Scope
}

// ScopeOf returns the scope opened by a procedure or trigger declaration.
func (t *Table) ScopeOf(n ast.Node) *Scope {
	return t.scopes[n]
}

// ScopeAt returns the innermost scope covering a source offset.
func (t *Table) ScopeAt(offset int64) *Scope {
	for x := len(t.routines) - 1; x >= 0; x = x - 1 {
		if t.routines[x].symbol.Contains(offset) {
			return t.routines[x].scope
		}
	}
	return t.Global
}

// Resolve looks a name up from the scope covering offset.
func (t *Table) Resolve(offset int64, name string) *Symbol {
	return t.ScopeAt(offset).Lookup(name)
}

// Collect builds the symbol table of a parsed document. Duplicate fields,
// globals, procedures, parameters and locals are reported as non-fatal
// exceptions and the first declaration wins.
func Collect(uri string, doc *ast.Document, r exc.Reporter) *Table {
	t := &Table{
		URI:    uri,
		scopes: make(map[ast.Node]*Scope),
	}
	t.Object = Outline(uri, doc)
	t.Fields = newScope(nil, t.Object)
	t.Global = newScope(t.Fields, t.Object)
	if doc == nil || doc.Object == nil {
		return t
	}
	obj := doc.Object
	if obj.Fields != nil {
		for _, f := range obj.Fields.Fields {
			if f.FieldName == "" {
				continue
			}
			t.define(r, t.Fields, fieldSymbol(uri, f), "field")
		}
	}
	for _, section := range obj.Sections {
		switch section := section.(type) {
		case *ast.PropertySection:
			t.collectPropertyTriggers(r, section.Properties)
		case *ast.FieldSection:
			for _, f := range section.Fields {
				t.collectPropertyTriggers(r, f.Properties)
			}
		case *ast.ItemSection:
			for _, item := range section.Items {
				t.collectPropertyTriggers(r, item.Properties)
			}
		}
	}
	if code := obj.Code; code != nil {
		for _, v := range code.Variables {
			t.define(r, t.Global, variableSymbol(uri, v), "variable")
		}
		for _, p := range code.Procedures {
			sym := procedureSymbol(uri, p)
			t.define(r, t.Global, sym, "procedure")
			scope := t.routine(p, sym)
			for _, param := range parameterSymbols(uri, p.Parameters) {
				t.define(r, scope, param, "parameter")
			}
			if p.ReturnName != "" {
				ret := &Symbol{
					Name:   p.ReturnName,
					Kind:   KindVariable,
					Detail: FormatDataType(p.ReturnType),
					URI:    uri,
					Span:   sym.Span,
				}
				if p.ReturnType != nil {
					ret.Span = p.ReturnType.Span()
				}
				t.define(r, scope, ret, "return value")
			}
			for _, v := range p.Variables {
				t.define(r, scope, variableSymbol(uri, v), "local variable")
			}
		}
		for _, trig := range code.Triggers {
			t.collectTrigger(r, trig)
		}
	}
	sort.SliceStable(t.routines, func(i, j int) bool {
		return t.routines[i].symbol.Span.Start.Offset < t.routines[j].symbol.Span.Start.Offset
	})
	return t
}

func (t *Table) collectPropertyTriggers(r exc.Reporter, props []*ast.Property) {
	for _, p := range props {
		if p.Trigger != nil {
			t.collectTrigger(r, p.Trigger)
		}
	}
}

func (t *Table) collectTrigger(r exc.Reporter, trig *ast.TriggerDeclaration) {
	scope := t.routine(trig, triggerSymbol(t.URI, trig))
	for _, param := range parameterSymbols(t.URI, trig.Parameters) {
		t.define(r, scope, param, "parameter")
	}
	for _, v := range trig.Variables {
		t.define(r, scope, variableSymbol(t.URI, v), "local variable")
	}
}

func (t *Table) routine(n ast.Node, sym *Symbol) *Scope {
	scope := newScope(t.Global, sym)
	t.scopes[n] = scope
	t.routines = append(t.routines, routineScope{symbol: sym, scope: scope})
	return scope
}

func (t *Table) define(r exc.Reporter, scope *Scope, sym *Symbol, what string) {
	if sym.Name == "" {
		return
	}
	prev := scope.Define(sym)
	if prev == nil {
		return
	}
	_ = r.Report(exc.New(
		exc.Location{URI: t.URI, Location: sym.Span.Start},
		exc.CodeDuplicateSymbol,
		fmt.Sprintf("%s %s is already declared at %d:%d", what, sym.Name, prev.Span.Start.Line, prev.Span.Start.Column),
	))
}

// References lists the identifiers of doc that resolve to decl, in source
// order. The declaration itself is not included.
func References(t *Table, doc *ast.Document, decl *Symbol) []idl.Span {
	if decl == nil {
		return nil
	}
	key := foldName(decl.Name)
	var out []idl.Span
	ast.WalkDocument(doc, func(n ast.Node) {
		id, ok := n.(*ast.Identifier)
		if !ok || foldName(id.Name) != key {
			return
		}
		span := id.Span()
		if t.Resolve(span.Start.Offset, id.Name) == decl {
			out = append(out, span)
		}
	})
	return out
}
