// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package symbols

import (
	"fmt"
	"strings"

	"github.com/calfront/calfront/internal/ast"
)

// Outline builds the object → section → declaration hierarchy of a parsed
// document. It returns nil when the document has no object.
func Outline(uri string, doc *ast.Document) *Symbol {
	if doc == nil || doc.Object == nil {
		return nil
	}
	obj := doc.Object
	root := &Symbol{
		Name:   obj.Name,
		Kind:   KindObject,
		Detail: fmt.Sprintf("%s %d", obj.Kind, obj.ID),
		URI:    uri,
		Span:   spanOf(obj),
	}
	for _, section := range obj.Sections {
		s := &Symbol{
			Name: section.SectionKind().String(),
			Kind: KindSection,
			URI:  uri,
			Span: spanOf(section),
		}
		switch section := section.(type) {
		case *ast.PropertySection:
			s.Children = propertyTriggers(uri, section.Properties)
		case *ast.FieldSection:
			for _, f := range section.Fields {
				s.Children = append(s.Children, fieldSymbol(uri, f))
			}
		case *ast.KeySection:
			for _, k := range section.Keys {
				if len(k.Fields) == 0 {
					continue
				}
				s.Children = append(s.Children, &Symbol{
					Name: strings.Join(k.Fields, ","),
					Kind: KindKey,
					URI:  uri,
					Span: spanOf(k),
				})
			}
		case *ast.ItemSection:
			for _, item := range section.Items {
				s.Children = append(s.Children, propertyTriggers(uri, item.Properties)...)
			}
		case *ast.CodeSection:
			s.Children = codeSymbols(uri, section)
		}
		root.Children = append(root.Children, s)
	}
	return root
}

func fieldSymbol(uri string, f *ast.FieldDeclaration) *Symbol {
	dt := f.DataType
	return &Symbol{
		Name:     f.FieldName,
		Kind:     KindField,
		Detail:   fmt.Sprintf("%d %s", f.FieldNo, FormatDataType(&dt)),
		URI:      uri,
		Span:     spanOf(f),
		Children: propertyTriggers(uri, f.Properties),
	}
}

func propertyTriggers(uri string, props []*ast.Property) []*Symbol {
	var out []*Symbol
	for _, p := range props {
		if p.Trigger == nil {
			continue
		}
		out = append(out, triggerSymbol(uri, p.Trigger))
	}
	return out
}

func codeSymbols(uri string, code *ast.CodeSection) []*Symbol {
	out := make([]*Symbol, 0, len(code.Variables)+len(code.Procedures)+len(code.Triggers))
	for _, v := range code.Variables {
		out = append(out, variableSymbol(uri, v))
	}
	for _, p := range code.Procedures {
		out = append(out, procedureSymbol(uri, p))
	}
	for _, t := range code.Triggers {
		out = append(out, triggerSymbol(uri, t))
	}
	return out
}

func variableSymbol(uri string, v *ast.VariableDeclaration) *Symbol {
	return &Symbol{
		Name:   v.Name,
		Kind:   KindVariable,
		Detail: FormatDataType(v.DataType),
		URI:    uri,
		Span:   spanOf(v),
	}
}

func parameterSymbols(uri string, params []*ast.Parameter) []*Symbol {
	out := make([]*Symbol, 0, len(params))
	for _, p := range params {
		detail := FormatDataType(p.DataType)
		if p.IsVar {
			detail = "VAR " + detail
		}
		out = append(out, &Symbol{
			Name:   p.Name,
			Kind:   KindParameter,
			Detail: detail,
			URI:    uri,
			Span:   spanOf(p),
		})
	}
	return out
}

func procedureSymbol(uri string, p *ast.ProcedureDeclaration) *Symbol {
	params := make([]string, 0, len(p.Parameters))
	for _, param := range p.Parameters {
		params = append(params, param.Name)
	}
	detail := "(" + strings.Join(params, ";") + ")"
	if p.ReturnType != nil {
		detail = detail + " : " + FormatDataType(p.ReturnType)
	}
	if p.IsLocal {
		detail = "LOCAL " + detail
	}
	s := &Symbol{
		Name:     p.Name,
		Kind:     KindProcedure,
		Detail:   detail,
		URI:      uri,
		Span:     spanOf(p),
		Children: parameterSymbols(uri, p.Parameters),
	}
	for _, v := range p.Variables {
		s.Children = append(s.Children, variableSymbol(uri, v))
	}
	return s
}

func triggerSymbol(uri string, t *ast.TriggerDeclaration) *Symbol {
	detail := t.Kind.String()
	if t.Sender != "" {
		detail = detail + " " + t.Sender
	}
	s := &Symbol{
		Name:     t.Name,
		Kind:     KindTrigger,
		Detail:   detail,
		URI:      uri,
		Span:     spanOf(t),
		Children: parameterSymbols(uri, t.Parameters),
	}
	for _, v := range t.Variables {
		s.Children = append(s.Children, variableSymbol(uri, v))
	}
	return s
}

// Flatten lists every declaration of an outline in source order, sections
// excluded. Each entry names the declaration it is nested in.
func Flatten(root *Symbol) []*Symbol {
	if root == nil {
		return nil
	}
	var out []*Symbol
	var walk func(s *Symbol, container string)
	walk = func(s *Symbol, container string) {
		next := container
		if s.Kind != KindSection {
			flat := *s
			flat.Container = container
			flat.Children = nil
			out = append(out, &flat)
			next = s.Name
		}
		for _, child := range s.Children {
			walk(child, next)
		}
	}
	walk(root, "")
	return out
}

// SymbolAt returns the innermost symbol of an outline whose range contains
// offset, or nil.
func SymbolAt(root *Symbol, offset int64) *Symbol {
	if root == nil || !root.Contains(offset) {
		return nil
	}
	for _, child := range root.Children {
		if found := SymbolAt(child, offset); found != nil {
			return found
		}
	}
	return root
}
