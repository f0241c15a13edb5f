// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package report renders tokens, trees, symbols and diagnostics for the
// command line.
package report

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/symbols"
)

// Encode writes v as a YAML document.
func Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Tokens writes one line per token: position, type and value.
func Tokens(w io.Writer, uri string, tokens []idl.Token) error {
	for _, t := range tokens {
		if _, err := fmt.Fprintf(w, "%s:%d:%d\t%s\t%q\n", uri, t.Line(), t.Column(), t.Type, t.Value); err != nil {
			return err
		}
	}
	return nil
}

var (
	tokenType = reflect.TypeOf(idl.Token{})
	baseType  = reflect.TypeOf(ast.Base{})
)

type stringer interface {
	String() string
}

// Tree converts a parsed document into a YAML node. Every node lists its
// type and source range. Empty fields are left out.
func Tree(doc *ast.Document) *yaml.Node {
	if doc == nil {
		return scalar("!!null", "null")
	}
	return tree(reflect.ValueOf(doc.Object))
}

func tree(v reflect.Value) *yaml.Node {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return scalar("!!null", "null")
		}
		return tree(v.Elem())
	case reflect.Struct:
		return treeStruct(v)
	case reflect.Slice, reflect.Array:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for x := 0; x < v.Len(); x = x + 1 {
			n.Content = append(n.Content, tree(v.Index(x)))
		}
		return n
	case reflect.String:
		return scalar("!!str", v.String())
	case reflect.Bool:
		return scalar("!!bool", strconv.FormatBool(v.Bool()))
	}
	if s, ok := v.Interface().(stringer); ok {
		return scalar("!!str", s.String())
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar("!!int", strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar("!!int", strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return scalar("!!float", strconv.FormatFloat(v.Float(), 'g', -1, 64))
	}
	return scalar("!!str", fmt.Sprint(v.Interface()))
}

func treeStruct(v reflect.Value) *yaml.Node {
	t := v.Type()
	if t == tokenType {
		return scalar("!!str", v.Interface().(idl.Token).Value)
	}
	// optional.Optional hides its state behind methods.
	if present := v.MethodByName("IsPresent"); present.IsValid() {
		if !present.Call(nil)[0].Bool() {
			return scalar("!!null", "null")
		}
		return tree(v.MethodByName("Value").Call(nil)[0])
	}
	n := &yaml.Node{Kind: yaml.MappingNode}
	if _, ok := t.FieldByName("Base"); ok {
		n.Content = append(n.Content, scalar("!!str", "node"), scalar("!!str", t.Name()))
		if base := v.FieldByName("Base"); base.Type() == baseType {
			b := base.Interface().(ast.Base)
			n.Content = append(n.Content, scalar("!!str", "span"), scalar("!!str", formatSpan(b.StartToken.Span.Start, b.EndToken.Span.End)))
		}
	}
	for x := 0; x < t.NumField(); x = x + 1 {
		field := t.Field(x)
		if !field.IsExported() || field.Type == baseType || field.Tag.Get("yaml") == "-" {
			continue
		}
		fv := v.Field(x)
		if fv.IsZero() || ((fv.Kind() == reflect.Slice || fv.Kind() == reflect.Map) && fv.Len() == 0) {
			continue
		}
		n.Content = append(n.Content, scalar("!!str", field.Name), tree(fv))
	}
	return n
}

func scalar(tag string, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatSpan(start idl.Location, end idl.Location) string {
	return fmt.Sprintf("%d:%d-%d:%d", start.Line, start.Column, end.Line, end.Column)
}

// Symbol is the serialized form of a symbols.Symbol.
type Symbol struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Detail    string   `yaml:"detail,omitempty"`
	URI       string   `yaml:"uri,omitempty"`
	Container string   `yaml:"container,omitempty"`
	Span      string   `yaml:"span"`
	Score     int      `yaml:"score,omitempty"`
	Children  []Symbol `yaml:"children,omitempty"`
}

func newSymbol(s *symbols.Symbol) Symbol {
	out := Symbol{
		Name:      s.Name,
		Kind:      s.Kind.String(),
		Detail:    s.Detail,
		URI:       s.URI,
		Container: s.Container,
		Span:      formatSpan(s.Span.Start, s.Span.End),
	}
	for _, child := range s.Children {
		c := newSymbol(child)
		c.URI = ""
		out.Children = append(out.Children, c)
	}
	return out
}

// Outlines converts symbol hierarchies.
func Outlines(roots []*symbols.Symbol) []Symbol {
	out := make([]Symbol, 0, len(roots))
	for _, root := range roots {
		if root != nil {
			out = append(out, newSymbol(root))
		}
	}
	return out
}

// Matches converts search results, best match first.
func Matches(matches []symbols.Match) []Symbol {
	out := make([]Symbol, 0, len(matches))
	for _, m := range matches {
		s := newSymbol(m.Symbol)
		s.Score = m.Score
		out = append(out, s)
	}
	return out
}

// Diagnostic is the serialized form of an exception.
type Diagnostic struct {
	URI      string `yaml:"uri"`
	Line     int32  `yaml:"line,omitempty"`
	Column   int32  `yaml:"column,omitempty"`
	Code     string `yaml:"code"`
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
}

func Diagnostics(excs []exc.Exception) []Diagnostic {
	out := make([]Diagnostic, 0, len(excs))
	for _, e := range excs {
		loc := e.Location()
		severity := "error"
		if e.Code() == exc.CodeDuplicateSymbol {
			severity = "warning"
		}
		out = append(out, Diagnostic{
			URI:      loc.URI,
			Line:     loc.Line,
			Column:   loc.Column,
			Code:     e.Code(),
			Severity: severity,
			Message:  strings.TrimSpace(e.Message()),
		})
	}
	return out
}
