// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package symbols derives navigation data from parsed objects: a scope-nested
// table of declarations, a hierarchical outline and a flat list suitable for
// workspace wide search. Nothing here checks types.
package symbols

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/idl"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindObject
	KindSection
	KindField
	KindKey
	KindProcedure
	KindTrigger
	KindVariable
	KindParameter
)

var kindNames = map[Kind]string{
	KindObject:    "object",
	KindSection:   "section",
	KindField:     "field",
	KindKey:       "key",
	KindProcedure: "procedure",
	KindTrigger:   "trigger",
	KindVariable:  "variable",
	KindParameter: "parameter",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}

// Symbol is a named declaration. In an outline Children holds the nested
// declarations. In a flat list Children is empty and Container names the
// enclosing declaration.
type Symbol struct {
	Name      string
	Kind      Kind
	Detail    string
	URI       string
	Container string
	Span      idl.Span
	Children  []*Symbol
}

func (s *Symbol) String() string {
	if s.Detail == "" {
		return fmt.Sprintf("%s %s", s.Kind, s.Name)
	}
	return fmt.Sprintf("%s %s: %s", s.Kind, s.Name, s.Detail)
}

// Contains reports whether offset falls inside the symbol's source range.
func (s *Symbol) Contains(offset int64) bool {
	return s.Span.Start.Offset <= offset && offset < s.Span.End.Offset
}

// FormatDataType renders a declared type the way it is written in source,
// for example "TEMPORARY Record 18", "Text[30]" or "ARRAY [2,3] OF Decimal".
func FormatDataType(dt *ast.DataType) string {
	if dt == nil {
		return ""
	}
	var b strings.Builder
	if dt.Temporary {
		b.WriteString("TEMPORARY ")
	}
	if len(dt.Dimensions) > 0 {
		dims := make([]string, 0, len(dt.Dimensions))
		for _, d := range dt.Dimensions {
			dims = append(dims, strconv.Itoa(d))
		}
		b.WriteString("ARRAY [")
		b.WriteString(strings.Join(dims, ","))
		b.WriteString("] OF ")
	}
	b.WriteString(dt.TypeName)
	if dt.Length.IsPresent() {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(dt.Length.Value()))
		b.WriteString("]")
	}
	if dt.Subtype != "" {
		b.WriteString(" ")
		b.WriteString(dt.Subtype)
	}
	return b.String()
}

func spanOf(n ast.Node) idl.Span {
	return idl.Span{Start: n.Start().Span.Start, End: n.End().Span.End}
}

// foldName is the lookup key of a C/AL name. Names are case-insensitive.
func foldName(name string) string {
	return strings.ToLower(name)
}
