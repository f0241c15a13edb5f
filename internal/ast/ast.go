// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package ast holds the syntax tree produced by the C/AL parser. Trees are
// built once per parse, never mutated afterwards and replaced wholesale on
// re-parse. Every node records the first and last token it was built from.
package ast

import (
	"fmt"

	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/optional"
)

// Node is implemented by every tree element.
type Node interface {
	Start() idl.Token
	End() idl.Token
	node()
}

// Section is implemented by every block that can appear in an object body.
type Section interface {
	Node
	SectionKind() SectionKind
}

// Statement is implemented by every statement variant.
type Statement interface {
	Node
	statement()
}

// Expression is implemented by every expression variant.
type Expression interface {
	Node
	expression()
}

// Base carries the token range of a node.
type Base struct {
	StartToken idl.Token
	EndToken   idl.Token
}

func (b Base) Start() idl.Token {
	return b.StartToken
}

func (b Base) End() idl.Token {
	return b.EndToken
}

// Span returns the source range covered by the node.
func (b Base) Span() idl.Span {
	return idl.Span{Start: b.StartToken.Span.Start, End: b.EndToken.Span.End}
}

func (Base) node() {}

// Document is the result of one parse. Object is nil when the input did not
// contain an object declaration.
type Document struct {
	URI    string
	Object *ObjectDeclaration
}

type ObjectKind uint8

const (
	ObjectKindUnknown ObjectKind = iota
	ObjectKindTable
	ObjectKindPage
	ObjectKindReport
	ObjectKindCodeunit
	ObjectKindQuery
	ObjectKindXMLport
	ObjectKindMenuSuite
	ObjectKindForm
	ObjectKindDataport
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectKindTable:
		return "Table"
	case ObjectKindPage:
		return "Page"
	case ObjectKindReport:
		return "Report"
	case ObjectKindCodeunit:
		return "Codeunit"
	case ObjectKindQuery:
		return "Query"
	case ObjectKindXMLport:
		return "XMLport"
	case ObjectKindMenuSuite:
		return "MenuSuite"
	case ObjectKindForm:
		return "Form"
	case ObjectKindDataport:
		return "Dataport"
	default:
		return "Unknown"
	}
}

type SectionKind uint8

const (
	SectionKindUnknown SectionKind = iota
	SectionKindObjectProperties
	SectionKindProperties
	SectionKindFields
	SectionKindKeys
	SectionKindFieldGroups
	SectionKindCode
	SectionKindControls
	SectionKindActions
	SectionKindElements
	SectionKindEvents
	SectionKindRequestPage
	SectionKindRequestForm
	SectionKindDataset
	SectionKindLabels
	SectionKindMenuNodes
	SectionKindRDLData
	SectionKindWordLayout
	SectionKindDataItems
	SectionKindSections
)

var sectionKindNames = map[SectionKind]string{
	SectionKindObjectProperties: "OBJECT-PROPERTIES",
	SectionKindProperties:       "PROPERTIES",
	SectionKindFields:           "FIELDS",
	SectionKindKeys:             "KEYS",
	SectionKindFieldGroups:      "FIELDGROUPS",
	SectionKindCode:             "CODE",
	SectionKindControls:         "CONTROLS",
	SectionKindActions:          "ACTIONS",
	SectionKindElements:         "ELEMENTS",
	SectionKindEvents:           "EVENTS",
	SectionKindRequestPage:      "REQUESTPAGE",
	SectionKindRequestForm:      "REQUESTFORM",
	SectionKindDataset:          "DATASET",
	SectionKindLabels:           "LABELS",
	SectionKindMenuNodes:        "MENUNODES",
	SectionKindRDLData:          "RDLDATA",
	SectionKindWordLayout:       "WORDLAYOUT",
	SectionKindDataItems:        "DATAITEMS",
	SectionKindSections:         "SECTIONS",
}

func (k SectionKind) String() string {
	if name, ok := sectionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SECTION(%d)", uint8(k))
}

type ObjectDeclaration struct {
	Base
	Kind ObjectKind
	ID   int
	Name string

	ObjectProperties *PropertySection `yaml:"-"`
	Properties       *PropertySection `yaml:"-"`
	Fields           *FieldSection    `yaml:"-"`
	Keys             *KeySection      `yaml:"-"`
	Code             *CodeSection     `yaml:"-"`

	// Sections lists every section in source order, including the ones
	// referenced above and the ones that were skipped without being modeled.
	Sections []Section
}

// ItemSection returns the first generic item section of the given kind.
func (o *ObjectDeclaration) ItemSection(kind SectionKind) *ItemSection {
	for _, s := range o.Sections {
		if is, ok := s.(*ItemSection); ok && is.Kind == kind {
			return is
		}
	}
	return nil
}

// PropertySection is a flat Name=Value; list such as PROPERTIES or
// OBJECT-PROPERTIES.
type PropertySection struct {
	Base
	Kind       SectionKind
	Properties []*Property
}

func (s *PropertySection) SectionKind() SectionKind { return s.Kind }

// Property returns the first property with the given name.
func (s *PropertySection) Property(name string) *Property {
	return findProperty(s.Properties, name)
}

// Property is a Name=Value pair. Value keeps the raw tokens of the value.
// Trigger is set instead when the value is code (OnRun=BEGIN ... END).
type Property struct {
	Base
	Name    string
	Value   []idl.Token
	Trigger *TriggerDeclaration
}

type FieldSection struct {
	Base
	Fields []*FieldDeclaration
}

func (s *FieldSection) SectionKind() SectionKind { return SectionKindFields }

type FieldDeclaration struct {
	Base
	FieldNo    int
	FieldName  string
	DataType   DataType
	Properties []*Property
	Triggers   []*TriggerDeclaration
}

func (f *FieldDeclaration) Property(name string) *Property {
	return findProperty(f.Properties, name)
}

type KeySection struct {
	Base
	Keys []*KeyDeclaration
}

func (s *KeySection) SectionKind() SectionKind { return SectionKindKeys }

type KeyDeclaration struct {
	Base
	Fields     []string
	Properties []*Property
}

// ItemSection is the generic structured block used for CONTROLS, ACTIONS,
// ELEMENTS, DATASET, MENUNODES, FIELDGROUPS, LABELS and DATAITEMS. Each item
// is a brace-delimited list of positional columns followed by properties.
type ItemSection struct {
	Base
	Kind  SectionKind
	Items []*Item
}

func (s *ItemSection) SectionKind() SectionKind { return s.Kind }

type Item struct {
	Base
	Columns    []string
	Properties []*Property
}

func (i *Item) Property(name string) *Property {
	return findProperty(i.Properties, name)
}

// UnmodeledSection records a section whose body was skipped by brace
// balancing. It is not an error.
type UnmodeledSection struct {
	Base
	Kind SectionKind
	Name string
}

func (s *UnmodeledSection) SectionKind() SectionKind { return s.Kind }

// CodeSection holds the global declarations of an object. Locals of a
// procedure or trigger are never listed here.
type CodeSection struct {
	Base
	Variables  []*VariableDeclaration
	Procedures []*ProcedureDeclaration
	Triggers   []*TriggerDeclaration
}

func (s *CodeSection) SectionKind() SectionKind { return SectionKindCode }

// Procedure returns the first procedure with the given name, compared
// case-insensitively.
func (s *CodeSection) Procedure(name string) *ProcedureDeclaration {
	for _, p := range s.Procedures {
		if equalFold(p.Name, name) {
			return p
		}
	}
	return nil
}

type DataType struct {
	Base
	TypeName string
	Length   optional.Optional[int]
	// Subtype is the object or assembly reference of Record 18,
	// Codeunit "Sales-Post" or DotNet "'mscorlib'.System.String".
	Subtype    string
	Temporary  bool
	Dimensions []int
	// Value holds the literal of TextConst and inline option types.
	Value []idl.Token
}

type VariableDeclaration struct {
	Base
	Name      string
	NameToken idl.Token
	DataType  *DataType
	Modifiers []string
}

type Parameter struct {
	Base
	Name      string
	NameToken idl.Token
	IsVar     bool
	DataType  *DataType
}

// Attribute is a [Name(args)] annotation. RawTokens holds the parenthesized
// argument list verbatim, parentheses included, and is empty for [Name].
type Attribute struct {
	Base
	Name      string
	NameToken idl.Token
	RawTokens []idl.Token
}

type ProcedureDeclaration struct {
	Base
	Name       string
	NameToken  idl.Token
	IsLocal    bool
	Attributes []*Attribute
	Parameters []*Parameter
	ReturnName string
	ReturnType *DataType
	Variables  []*VariableDeclaration
	Body       *BlockStatement
}

type TriggerKind uint8

const (
	// TriggerKindProperty is code attached to a property, such as OnRun or
	// a field's OnValidate.
	TriggerKindProperty TriggerKind = iota
	// TriggerKindEvent is an EVENT or TRIGGER declaration in CODE.
	TriggerKindEvent
	// TriggerKindDocumentation is the closing BEGIN ... END. of CODE.
	TriggerKindDocumentation
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerKindProperty:
		return "property"
	case TriggerKindEvent:
		return "event"
	case TriggerKindDocumentation:
		return "documentation"
	default:
		return "unknown"
	}
}

type TriggerDeclaration struct {
	Base
	Name      string
	NameToken idl.Token
	Kind      TriggerKind
	// Sender is the variable an EVENT trigger is bound to.
	Sender     string
	Attributes []*Attribute
	Parameters []*Parameter
	Variables  []*VariableDeclaration
	Body       *BlockStatement
}

// Statements

type BlockStatement struct {
	Base
	Statements []Statement
}

type IfStatement struct {
	Base
	Condition Expression
	Then      Statement
	Else      Statement
}

type CaseStatement struct {
	Base
	Expression Expression
	Branches   []*CaseBranch
	Else       []Statement
}

type CaseBranch struct {
	Base
	Values []Expression
	Body   Statement
}

type WhileStatement struct {
	Base
	Condition Expression
	Body      Statement
}

type RepeatStatement struct {
	Base
	Body      []Statement
	Condition Expression
}

type ForStatement struct {
	Base
	Variable Expression
	Initial  Expression
	Final    Expression
	DownTo   bool
	Body     Statement
}

type WithStatement struct {
	Base
	Record Expression
	Body   Statement
}

// CallStatement is an expression used as a statement: a procedure call with
// or without arguments, including quoted calls such as "Break";
type CallStatement struct {
	Base
	Expression Expression
}

// Callee returns the called expression, unwrapping an argument list.
func (s *CallStatement) Callee() Expression {
	if c, ok := s.Expression.(*Call); ok {
		return c.Callee
	}
	return s.Expression
}

type AssignmentStatement struct {
	Base
	Target   Expression
	Operator string
	Value    Expression
}

type BreakStatement struct {
	Base
}

type ExitStatement struct {
	Base
	Value Expression
}

func (*BlockStatement) statement()      {}
func (*IfStatement) statement()         {}
func (*CaseStatement) statement()       {}
func (*WhileStatement) statement()      {}
func (*RepeatStatement) statement()     {}
func (*ForStatement) statement()        {}
func (*WithStatement) statement()       {}
func (*CallStatement) statement()       {}
func (*AssignmentStatement) statement() {}
func (*BreakStatement) statement()      {}
func (*ExitStatement) statement()       {}

// Expressions

type Identifier struct {
	Base
	Name     string
	IsQuoted bool
}

type LiteralKind uint8

const (
	LiteralKindString LiteralKind = iota
	LiteralKindInteger
	LiteralKindDecimal
	LiteralKindBoolean
	LiteralKindDate
	LiteralKindTime
	LiteralKindDateTime
)

type Literal struct {
	Base
	Kind  LiteralKind
	Value string
}

type BinaryOp struct {
	Base
	Operator string
	Left     Expression
	Right    Expression
}

type UnaryOp struct {
	Base
	Operator string
	Operand  Expression
}

// MemberAccess is Rec.Field (Operator ".") or Type::Value (Operator "::").
type MemberAccess struct {
	Base
	Object   Expression
	Operator string
	Member   *Identifier
}

type Call struct {
	Base
	Callee    Expression
	Arguments []Expression
}

type Index struct {
	Base
	Target  Expression
	Indices []Expression
}

// Set is a bracketed value list such as the right side of IN.
type Set struct {
	Base
	Elements []Expression
}

func (*Identifier) expression()   {}
func (*Literal) expression()      {}
func (*BinaryOp) expression()     {}
func (*UnaryOp) expression()      {}
func (*MemberAccess) expression() {}
func (*Call) expression()         {}
func (*Index) expression()        {}
func (*Set) expression()          {}

func findProperty(props []*Property, name string) *Property {
	for _, p := range props {
		if equalFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// equalFold compares C/AL names, which are case-insensitive for ASCII.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for x := 0; x < len(a); x = x + 1 {
		ca, cb := a[x], b[x]
		if 'A' <= ca && ca <= 'Z' {
			ca = ca + 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb = cb + 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
