// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/iter"
	"github.com/calfront/calfront/internal/optional"
)

// ParseError is a recoverable problem found while parsing. Parsing never
// stops because of one.
type ParseError struct {
	Token   idl.Token
	Code    string
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d -- %s: %s", e.Token.Line(), e.Token.Column(), e.Code, e.Message)
}

// Exception converts the error into an exc.Exception located in uri.
func (e ParseError) Exception(uri string) exc.Exception {
	return exc.New(exc.Location{URI: uri, Location: e.Token.Span.Start}, e.Code, e.Message)
}

// Parse builds the tree of one object from tokens produced by Tokenize.
func Parse(tokens []idl.Token) (*ast.Document, []ParseError) {
	return NewParser(exc.NewReporterDiscard()).Parse(context.Background(), "", tokens)
}

type ParserCAL struct {
	reporter exc.Reporter
}

func NewParser(reporter exc.Reporter) *ParserCAL {
	return &ParserCAL{reporter: reporter}
}

// Parse builds the tree of one object. Every diagnostic is returned and also
// forwarded to the reporter.
func (self *ParserCAL) Parse(ctx context.Context, uri string, tokens []idl.Token) (*ast.Document, []ParseError) {
	p := self.prepareParse(ctx, uri, tokens)
	doc := p.parseDocument()
	return doc, p.errors
}

// ParseFile lexes and parses a file. The error is only set when the file
// cannot be read.
func (self *ParserCAL) ParseFile(ctx context.Context, f idl.LexerFile) (*ast.Document, []ParseError, error) {
	toks, err := f.Tokens(ctx)
	if err != nil {
		return nil, nil, err
	}
	doc, errs := self.Parse(ctx, f.Path(ctx), toks)
	return doc, errs, nil
}

func (self *ParserCAL) prepareParse(ctx context.Context, uri string, tokens []idl.Token) *parserCALTokens {
	// Comments only exist to keep offsets exact. The parser never looks at
	// them, and it supplies its own terminal EOF.
	filtered, _ := iter.Collect(ctx, iter.NewIteratorFilter(iter.NewSlice(tokens), idl.Filter[idl.Token](iter.FilterFunc[idl.Token](func(ctx context.Context, t idl.Token) bool {
		return t.Type != idl.TokenTypeComment && t.Type != idl.TokenTypeEOF
	}))))
	var end idl.Location
	if len(tokens) > 0 {
		end = tokens[len(tokens)-1].Span.End
	}
	filtered = append(filtered, idl.Token{Span: idl.Span{Start: end, End: end}, Type: idl.TokenTypeEOF})
	return &parserCALTokens{
		ctx:      ctx,
		uri:      uri,
		reporter: self.reporter,
		tokens:   filtered,
	}
}

type parserCALTokens struct {
	ctx      context.Context
	uri      string
	reporter exc.Reporter
	// tokens always ends with exactly one EOF token.
	tokens []idl.Token
	pos    int
	errors []ParseError
}

var objectKinds = map[idl.TokenType]ast.ObjectKind{
	idl.TokenTypeKeywordTable:     ast.ObjectKindTable,
	idl.TokenTypeKeywordPage:      ast.ObjectKindPage,
	idl.TokenTypeKeywordReport:    ast.ObjectKindReport,
	idl.TokenTypeKeywordCodeunit:  ast.ObjectKindCodeunit,
	idl.TokenTypeKeywordQuery:     ast.ObjectKindQuery,
	idl.TokenTypeKeywordXMLport:   ast.ObjectKindXMLport,
	idl.TokenTypeKeywordMenuSuite: ast.ObjectKindMenuSuite,
	idl.TokenTypeKeywordForm:      ast.ObjectKindForm,
	idl.TokenTypeKeywordDataport:  ast.ObjectKindDataport,
}

var sectionKinds = map[idl.TokenType]ast.SectionKind{
	idl.TokenTypeKeywordProperties:  ast.SectionKindProperties,
	idl.TokenTypeKeywordFields:      ast.SectionKindFields,
	idl.TokenTypeKeywordKeys:        ast.SectionKindKeys,
	idl.TokenTypeKeywordFieldGroups: ast.SectionKindFieldGroups,
	idl.TokenTypeKeywordCode:        ast.SectionKindCode,
	idl.TokenTypeKeywordControls:    ast.SectionKindControls,
	idl.TokenTypeKeywordActions:     ast.SectionKindActions,
	idl.TokenTypeKeywordElements:    ast.SectionKindElements,
	idl.TokenTypeKeywordEvents:      ast.SectionKindEvents,
	idl.TokenTypeKeywordRequestPage: ast.SectionKindRequestPage,
	idl.TokenTypeKeywordRequestForm: ast.SectionKindRequestForm,
	idl.TokenTypeKeywordDataset:     ast.SectionKindDataset,
	idl.TokenTypeKeywordLabels:      ast.SectionKindLabels,
	idl.TokenTypeKeywordMenuNodes:   ast.SectionKindMenuNodes,
	idl.TokenTypeKeywordRDLData:     ast.SectionKindRDLData,
	idl.TokenTypeKeywordWordLayout:  ast.SectionKindWordLayout,
	idl.TokenTypeKeywordDataItems:   ast.SectionKindDataItems,
	idl.TokenTypeKeywordSections:    ast.SectionKindSections,
}

// declarationStops are the tokens where skipping inside CODE always halts so
// that the next declaration is still seen.
var declarationStops = map[idl.TokenType]bool{
	idl.TokenTypeEOF:              true,
	idl.TokenTypeCurlyClose:       true,
	idl.TokenTypeKeywordProcedure: true,
	idl.TokenTypeKeywordFunction:  true,
	idl.TokenTypeKeywordLocal:     true,
	idl.TokenTypeKeywordEvent:     true,
	idl.TokenTypeKeywordTrigger:   true,
	idl.TokenTypeKeywordVar:       true,
	idl.TokenTypeKeywordBegin:     true,
}

func (p *parserCALTokens) report(t idl.Token, code string, message string) {
	e := ParseError{Token: t, Code: code, Message: message}
	p.errors = append(p.errors, e)
	_ = p.reporter.Report(e.Exception(p.uri))
}

func (p *parserCALTokens) reportUnexpected(t idl.Token, expecting string) {
	if t.Type == idl.TokenTypeEOF {
		p.report(t, exc.CodeUnexpectedEOF, fmt.Sprintf("unexpected EOF (expecting %s)", expecting))
		return
	}
	p.report(t, exc.CodeUnexpectedToken, fmt.Sprintf("unexpected %s (expecting %s)", describe(t), expecting))
}

func (p *parserCALTokens) peekN(n int) idl.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parserCALTokens) peek() idl.Token {
	return p.peekN(0)
}

func (p *parserCALTokens) is(types ...idl.TokenType) bool {
	return slices.Contains(types, p.peek().Type)
}

func (p *parserCALTokens) atEOF() bool {
	return p.peek().Type == idl.TokenTypeEOF
}

// advance consumes and returns the current token. It never moves past EOF.
func (p *parserCALTokens) advance() idl.Token {
	t := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos = p.pos + 1
	}
	return t
}

// last returns the most recently consumed token.
func (p *parserCALTokens) last() idl.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parserCALTokens) base(start idl.Token) ast.Base {
	end := p.last()
	if end.StartOffset() < start.StartOffset() {
		end = start
	}
	return ast.Base{StartToken: start, EndToken: end}
}

// reports an error if the current token isn't of the expected type
// advances on success
func (p *parserCALTokens) expectOne(expectedType idl.TokenType) (idl.Token, bool) {
	return p.expectOneOf(expectedType)
}

// reports an error if the current token isn't one of the given expected types.
// advances on success
func (p *parserCALTokens) expectOneOf(expectedTypes ...idl.TokenType) (idl.Token, bool) {
	t := p.peek()
	if slices.Contains(expectedTypes, t.Type) {
		p.advance()
		return t, true
	}
	p.reportUnexpected(t, fmt.Sprintf("%v", expectedTypes))
	return t, false
}

// skipUntil advances to the next token of one of the given types or to a
// declaration boundary, without consuming it.
func (p *parserCALTokens) skipUntil(types ...idl.TokenType) {
	for {
		t := p.peek()
		if declarationStops[t.Type] || slices.Contains(types, t.Type) {
			return
		}
		p.advance()
	}
}

// skipPastSemicolon skips to the end of the current declaration.
func (p *parserCALTokens) skipPastSemicolon() {
	p.skipUntil(idl.TokenTypeSemicolon)
	if p.is(idl.TokenTypeSemicolon) {
		p.advance()
	}
}

// skipBlock consumes a balanced { ... } block starting at the current token.
func (p *parserCALTokens) skipBlock() {
	open, ok := p.expectOne(idl.TokenTypeCurlyOpen)
	if !ok {
		return
	}
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch t.Type {
		case idl.TokenTypeEOF:
			p.report(open, exc.CodeUnexpectedEOF, "unbalanced {")
			return
		case idl.TokenTypeCurlyOpen:
			depth = depth + 1
		case idl.TokenTypeCurlyClose:
			depth = depth - 1
		}
	}
}

func (p *parserCALTokens) parseDocument() *ast.Document {
	doc := &ast.Document{URI: p.uri}
	if !p.is(idl.TokenTypeKeywordObject) {
		t := p.peek()
		if t.Type == idl.TokenTypeEOF {
			p.report(t, exc.CodeMissingObject, "empty document")
			return doc
		}
		p.report(t, exc.CodeMissingObject, fmt.Sprintf("expecting OBJECT, found %s", describe(t)))
		for !p.is(idl.TokenTypeKeywordObject) && !p.atEOF() {
			p.advance()
		}
		if p.atEOF() {
			return doc
		}
	}
	doc.Object = p.parseObject()
	if !p.atEOF() {
		p.report(p.peek(), exc.CodeTrailingContent, "content after the end of the object")
	}
	return doc
}

func (p *parserCALTokens) parseObject() *ast.ObjectDeclaration {
	start := p.advance()
	obj := &ast.ObjectDeclaration{}
	kt := p.peek()
	if k, ok := objectKinds[kt.Type]; ok {
		p.advance()
		obj.Kind = k
	} else {
		p.reportUnexpected(kt, "object type")
		if isWord(kt) {
			p.advance()
		}
	}
	if t, ok := p.expectOne(idl.TokenTypeInteger); ok {
		id, err := strconv.Atoi(t.Value)
		if err != nil {
			p.report(t, exc.CodeInvalidNumber, fmt.Sprintf("invalid object id %s", t.Value))
		}
		obj.ID = id
	}
	// The name runs to the opening brace and never leaves the header line.
	var name []idl.Token
	for !p.is(idl.TokenTypeCurlyOpen) && !p.atEOF() && p.peek().Line() == start.Line() {
		name = append(name, p.advance())
	}
	obj.Name = joinValues(name)
	if _, ok := p.expectOne(idl.TokenTypeCurlyOpen); !ok {
		obj.Base = p.base(start)
		return obj
	}
	p.parseObjectBody(obj)
	obj.Base = p.base(start)
	return obj
}

func (p *parserCALTokens) parseObjectBody(obj *ast.ObjectDeclaration) {
	for {
		t := p.peek()
		switch {
		case t.Type == idl.TokenTypeEOF:
			p.report(t, exc.CodeUnexpectedEOF, "missing } closing the object")
			return
		case t.Type == idl.TokenTypeCurlyClose:
			p.advance()
			return
		case t.Type == idl.TokenTypeKeywordObject && p.peekN(1).Type == idl.TokenTypeMinus && p.peekN(2).Type == idl.TokenTypeKeywordProperties:
			p.advance()
			p.advance()
			p.advance()
			s := p.parsePropertySection(t, ast.SectionKindObjectProperties)
			if obj.ObjectProperties == nil {
				obj.ObjectProperties = s
			}
			obj.Sections = append(obj.Sections, s)
		case t.Type == idl.TokenTypeKeywordObject && objectKinds[p.peekN(1).Type] != ast.ObjectKindUnknown:
			// The next object starts before this one was closed.
			p.report(t, exc.CodeUnexpectedToken, "missing } closing the object")
			return
		case IsSectionKeyword(t.Type):
			obj.Sections = append(obj.Sections, p.parseSection(obj))
		default:
			p.advance()
			p.reportUnexpected(t, "section")
			if p.is(idl.TokenTypeCurlyOpen) {
				p.skipBlock()
			}
		}
	}
}

func (p *parserCALTokens) parseSection(obj *ast.ObjectDeclaration) ast.Section {
	kw := p.advance()
	kind := sectionKinds[kw.Type]
	switch kw.Type {
	case idl.TokenTypeKeywordProperties:
		s := p.parsePropertySection(kw, kind)
		if obj.Properties == nil {
			obj.Properties = s
		}
		return s
	case idl.TokenTypeKeywordFields:
		s := p.parseFieldSection(kw)
		if obj.Fields == nil {
			obj.Fields = s
		}
		return s
	case idl.TokenTypeKeywordKeys:
		s := p.parseKeySection(kw)
		if obj.Keys == nil {
			obj.Keys = s
		}
		return s
	case idl.TokenTypeKeywordCode:
		s := p.parseCodeSection(kw)
		if obj.Code == nil {
			obj.Code = s
		}
		return s
	case idl.TokenTypeKeywordControls, idl.TokenTypeKeywordActions, idl.TokenTypeKeywordElements,
		idl.TokenTypeKeywordDataset, idl.TokenTypeKeywordMenuNodes, idl.TokenTypeKeywordFieldGroups,
		idl.TokenTypeKeywordLabels:
		return p.parseItemSection(kw, kind)
	default:
		return p.skipSection(kw, kind)
	}
}

// skipSection steps over a section that has no model by brace balance. This
// is not an error.
func (p *parserCALTokens) skipSection(kw idl.Token, kind ast.SectionKind) *ast.UnmodeledSection {
	s := &ast.UnmodeledSection{Kind: kind, Name: strings.ToUpper(kw.Value)}
	if p.is(idl.TokenTypeCurlyOpen) {
		p.skipBlock()
	} else {
		p.reportUnexpected(p.peek(), "{")
	}
	s.Base = p.base(kw)
	return s
}

func (p *parserCALTokens) parsePropertySection(start idl.Token, kind ast.SectionKind) *ast.PropertySection {
	s := &ast.PropertySection{Kind: kind}
	if _, ok := p.expectOne(idl.TokenTypeCurlyOpen); ok {
		for !p.is(idl.TokenTypeCurlyClose) && !p.atEOF() {
			before := p.pos
			if p.is(idl.TokenTypeSemicolon) {
				p.advance()
				continue
			}
			if prop := p.parseProperty(); prop != nil {
				s.Properties = append(s.Properties, prop)
			}
			if p.pos == before {
				p.advance()
			}
		}
		_, _ = p.expectOne(idl.TokenTypeCurlyClose)
	}
	s.Base = p.base(start)
	return s
}

// isPropertyStart reports whether the upcoming tokens read Name=. Property
// names may be several words (Version List).
func (p *parserCALTokens) isPropertyStart() bool {
	n := 0
	for isWord(p.peekN(n)) {
		n = n + 1
	}
	return n > 0 && p.peekN(n).Type == idl.TokenTypeEqual
}

func (p *parserCALTokens) parseProperty() *ast.Property {
	start := p.peek()
	var name []idl.Token
	for isWord(p.peek()) {
		name = append(name, p.advance())
	}
	if len(name) == 0 || !p.is(idl.TokenTypeEqual) {
		p.reportUnexpected(p.peek(), "property")
		_ = p.collectValue()
		if p.is(idl.TokenTypeSemicolon) {
			p.advance()
		}
		return nil
	}
	p.advance()
	prop := &ast.Property{Name: joinValues(name)}
	if p.isTriggerStart() {
		tstart := p.peek()
		trig := &ast.TriggerDeclaration{
			Name:      prop.Name,
			NameToken: name[0],
			Kind:      ast.TriggerKindProperty,
		}
		trig.Variables, trig.Body = p.parseRoutineBody()
		trig.Base = p.base(tstart)
		prop.Trigger = trig
	} else {
		prop.Value = p.collectValue()
	}
	prop.Base = p.base(start)
	if p.is(idl.TokenTypeSemicolon) {
		p.advance()
	}
	return prop
}

// isTriggerStart reports whether a property value is code. Code values start
// with VAR or BEGIN alone on the line, which keeps OptionString=Begin,End a
// plain value.
func (p *parserCALTokens) isTriggerStart() bool {
	t := p.peek()
	if t.Type != idl.TokenTypeKeywordBegin && t.Type != idl.TokenTypeKeywordVar {
		return false
	}
	n := p.peekN(1)
	return n.Type == idl.TokenTypeEOF || n.Line() > t.Line()
}

// collectValue gathers the tokens of a property value or item column. It
// stops at ; or } outside brackets, or at a { that would start a new item.
func (p *parserCALTokens) collectValue() []idl.Token {
	var out []idl.Token
	depth := 0
	for {
		t := p.peek()
		switch t.Type {
		case idl.TokenTypeEOF:
			return out
		case idl.TokenTypeSemicolon:
			if depth == 0 {
				return out
			}
		case idl.TokenTypeCurlyClose:
			if depth == 0 {
				return out
			}
			depth = depth - 1
		case idl.TokenTypeCurlyOpen:
			if depth == 0 {
				return out
			}
			depth = depth + 1
		case idl.TokenTypeSquareOpen, idl.TokenTypeParenOpen:
			depth = depth + 1
		case idl.TokenTypeSquareClose, idl.TokenTypeParenClose:
			if depth > 0 {
				depth = depth - 1
			}
		}
		out = append(out, p.advance())
	}
}

// parseItem reads one { col ; col ; Prop=Value ; ... } entry of a structured
// section. The returned columns keep their tokens for callers that interpret
// them.
func (p *parserCALTokens) parseItem() (*ast.Item, [][]idl.Token) {
	start := p.advance()
	item := &ast.Item{}
	var columns [][]idl.Token
	inProperties := false
	for {
		t := p.peek()
		if t.Type == idl.TokenTypeCurlyClose {
			p.advance()
			break
		}
		if t.Type == idl.TokenTypeEOF {
			p.report(t, exc.CodeUnexpectedEOF, "missing } closing the item")
			break
		}
		if t.Type == idl.TokenTypeCurlyOpen {
			p.reportUnexpected(t, "item column or property")
			p.skipBlock()
			continue
		}
		if !inProperties && p.isPropertyStart() {
			inProperties = true
		}
		before := p.pos
		if inProperties {
			if p.is(idl.TokenTypeSemicolon) {
				p.advance()
				continue
			}
			if prop := p.parseProperty(); prop != nil {
				item.Properties = append(item.Properties, prop)
			}
		} else {
			col := p.collectValue()
			columns = append(columns, col)
			item.Columns = append(item.Columns, joinValues(col))
			if p.is(idl.TokenTypeSemicolon) {
				p.advance()
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	item.Base = p.base(start)
	return item, columns
}

// parseItems reads the body of a structured section and hands every item to
// fn.
func (p *parserCALTokens) parseItems(fn func(item *ast.Item, columns [][]idl.Token)) bool {
	if _, ok := p.expectOne(idl.TokenTypeCurlyOpen); !ok {
		return false
	}
	for {
		t := p.peek()
		switch t.Type {
		case idl.TokenTypeCurlyClose:
			p.advance()
			return true
		case idl.TokenTypeEOF:
			p.report(t, exc.CodeUnexpectedEOF, "missing } closing the section")
			return false
		case idl.TokenTypeCurlyOpen:
			item, columns := p.parseItem()
			fn(item, columns)
		default:
			p.advance()
			p.reportUnexpected(t, "{")
		}
	}
}

func (p *parserCALTokens) parseItemSection(kw idl.Token, kind ast.SectionKind) *ast.ItemSection {
	s := &ast.ItemSection{Kind: kind}
	_ = p.parseItems(func(item *ast.Item, _ [][]idl.Token) {
		s.Items = append(s.Items, item)
	})
	s.Base = p.base(kw)
	return s
}

func (p *parserCALTokens) parseFieldSection(kw idl.Token) *ast.FieldSection {
	s := &ast.FieldSection{}
	_ = p.parseItems(func(item *ast.Item, columns [][]idl.Token) {
		s.Fields = append(s.Fields, p.fieldFromItem(item, columns))
	})
	s.Base = p.base(kw)
	return s
}

// fieldFromItem interprets the columns of a field entry:
// { No ; Enabled ; Name ; Type ; Properties... }
func (p *parserCALTokens) fieldFromItem(item *ast.Item, columns [][]idl.Token) *ast.FieldDeclaration {
	f := &ast.FieldDeclaration{
		Base:       item.Base,
		Properties: item.Properties,
	}
	if len(columns) < 4 {
		p.report(item.StartToken, exc.CodeUnexpectedToken, "incomplete field declaration")
	}
	if len(columns) > 0 {
		if len(columns[0]) == 1 && columns[0][0].Type == idl.TokenTypeInteger {
			n, err := strconv.Atoi(columns[0][0].Value)
			if err != nil {
				p.report(columns[0][0], exc.CodeInvalidNumber, fmt.Sprintf("invalid field number %s", columns[0][0].Value))
			}
			f.FieldNo = n
		} else {
			p.report(item.StartToken, exc.CodeInvalidNumber, "missing field number")
		}
	}
	if len(columns) > 2 {
		f.FieldName = joinValues(columns[2])
	}
	if len(columns) > 3 {
		f.DataType = dataTypeFromColumn(columns[3])
	}
	for _, prop := range item.Properties {
		if prop.Trigger != nil {
			f.Triggers = append(f.Triggers, prop.Trigger)
		}
	}
	return f
}

// dataTypeFromColumn reads a field type column such as Code20, Decimal or
// Text250. A trailing number is the length.
func dataTypeFromColumn(toks []idl.Token) ast.DataType {
	if len(toks) == 0 {
		return ast.DataType{}
	}
	dt := ast.DataType{
		Base: ast.Base{StartToken: toks[0], EndToken: toks[len(toks)-1]},
	}
	name := joinValues(toks)
	x := len(name)
	for x > 0 && isDigit(rune(name[x-1])) {
		x = x - 1
	}
	if x > 0 && x < len(name) {
		if n, err := strconv.Atoi(name[x:]); err == nil {
			dt.Length = optional.Some(n)
			name = name[:x]
		}
	}
	dt.TypeName = name
	return dt
}

func (p *parserCALTokens) parseKeySection(kw idl.Token) *ast.KeySection {
	s := &ast.KeySection{}
	_ = p.parseItems(func(item *ast.Item, columns [][]idl.Token) {
		k := &ast.KeyDeclaration{
			Base:       item.Base,
			Properties: item.Properties,
		}
		if len(columns) < 2 {
			p.report(item.StartToken, exc.CodeUnexpectedToken, "key declaration without fields")
		} else {
			k.Fields = splitValues(columns[1], idl.TokenTypeComma)
		}
		s.Keys = append(s.Keys, k)
	})
	s.Base = p.base(kw)
	return s
}

func (p *parserCALTokens) parseCodeSection(kw idl.Token) *ast.CodeSection {
	s := &ast.CodeSection{}
	if _, ok := p.expectOne(idl.TokenTypeCurlyOpen); !ok {
		s.Base = p.base(kw)
		return s
	}
	var attrs []*ast.Attribute
	for {
		t := p.peek()
		before := p.pos
		switch t.Type {
		case idl.TokenTypeCurlyClose:
			p.advance()
			s.Base = p.base(kw)
			return s
		case idl.TokenTypeEOF:
			p.report(t, exc.CodeUnexpectedEOF, "missing } closing CODE")
			s.Base = p.base(kw)
			return s
		case idl.TokenTypeKeywordVar:
			p.advance()
			s.Variables = append(s.Variables, p.parseVarBlock()...)
		case idl.TokenTypeSquareOpen:
			if attr := p.parseAttribute(); attr != nil {
				attrs = append(attrs, attr)
			}
		case idl.TokenTypeKeywordLocal, idl.TokenTypeKeywordProcedure, idl.TokenTypeKeywordFunction:
			if proc := p.parseProcedure(attrs); proc != nil {
				s.Procedures = append(s.Procedures, proc)
			}
			attrs = nil
		case idl.TokenTypeKeywordEvent, idl.TokenTypeKeywordTrigger:
			if trig := p.parseEventTrigger(attrs); trig != nil {
				s.Triggers = append(s.Triggers, trig)
			}
			attrs = nil
		case idl.TokenTypeKeywordBegin:
			s.Triggers = append(s.Triggers, p.parseDocumentationTrigger())
		default:
			p.advance()
			p.reportUnexpected(t, "declaration")
			p.skipUntil(idl.TokenTypeSquareOpen)
		}
		if p.pos == before {
			p.advance()
		}
	}
}

// parseVarBlock reads declarations after VAR. The block ends at the first
// token that cannot start a declaration.
func (p *parserCALTokens) parseVarBlock() []*ast.VariableDeclaration {
	var out []*ast.VariableDeclaration
	for p.isVariableStart() {
		before := p.pos
		out = append(out, p.parseVariable()...)
		if p.pos == before {
			p.advance()
		}
	}
	return out
}

func (p *parserCALTokens) isVariableStart() bool {
	t := p.peek()
	if t.Type == idl.TokenTypeIdentifier || t.Type == idl.TokenTypeQuotedIdentifier {
		return true
	}
	if t.Type.IsKeyword() {
		n := p.peekN(1).Type
		return n == idl.TokenTypeColon || n == idl.TokenTypeComma
	}
	return false
}

// parseName consumes a declared name. Reserved words are consumed and
// reported so the caller can skip the rest of the declaration.
func (p *parserCALTokens) parseName(what string) (idl.Token, bool) {
	t := p.peek()
	switch {
	case isName(t):
		p.advance()
		return t, true
	case IsReserved(t.Type):
		p.advance()
		p.report(t, exc.CodeReservedIdentifier, fmt.Sprintf("reserved word %s cannot be used as a %s name", t.Value, what))
		return t, false
	default:
		p.reportUnexpected(t, what+" name")
		return t, false
	}
}

func (p *parserCALTokens) parseVariable() []*ast.VariableDeclaration {
	start := p.peek()
	var names []idl.Token
	for {
		name, ok := p.parseName("variable")
		if !ok {
			p.skipPastSemicolon()
			return nil
		}
		names = append(names, name)
		if !p.is(idl.TokenTypeComma) {
			break
		}
		p.advance()
	}
	if _, ok := p.expectOne(idl.TokenTypeColon); !ok {
		p.skipPastSemicolon()
		return nil
	}
	dt, modifiers := p.parseVariableType()
	if _, ok := p.expectOne(idl.TokenTypeSemicolon); !ok {
		p.skipPastSemicolon()
	}
	out := make([]*ast.VariableDeclaration, 0, len(names))
	for _, name := range names {
		out = append(out, &ast.VariableDeclaration{
			Base:      p.base(start),
			Name:      name.Value,
			NameToken: name,
			DataType:  dt,
			Modifiers: modifiers,
		})
	}
	return out
}

func (p *parserCALTokens) parseVariableType() (*ast.DataType, []string) {
	dt := p.parseDataType()
	var modifiers []string
	for {
		t := p.peek()
		switch t.Type {
		case idl.TokenTypeKeywordWithEvents, idl.TokenTypeKeywordRunOnClient, idl.TokenTypeKeywordInDataSet:
			p.advance()
			modifiers = append(modifiers, strings.ToUpper(t.Value))
		case idl.TokenTypeKeywordSecurityFiltering:
			p.advance()
			m := strings.ToUpper(t.Value)
			if p.is(idl.TokenTypeParenOpen) {
				m = m + FormatTokens(p.collectParenthesized())
			}
			modifiers = append(modifiers, m)
		default:
			return dt, modifiers
		}
	}
}

// parseDataType reads [TEMPORARY] [ARRAY [n,...] OF] Name [[len]] [subtype]
// and the literal of TextConst declarations.
func (p *parserCALTokens) parseDataType() *ast.DataType {
	start := p.peek()
	dt := &ast.DataType{}
	if p.is(idl.TokenTypeKeywordTemporary) {
		p.advance()
		dt.Temporary = true
	}
	if p.is(idl.TokenTypeKeywordArray) {
		p.advance()
		var dims []int
		if _, ok := p.expectOne(idl.TokenTypeSquareOpen); ok {
			for {
				if t, ok := p.expectOne(idl.TokenTypeInteger); ok {
					n, _ := strconv.Atoi(t.Value)
					dims = append(dims, n)
				}
				if !p.is(idl.TokenTypeComma) {
					break
				}
				p.advance()
			}
			_, _ = p.expectOne(idl.TokenTypeSquareClose)
		}
		_, _ = p.expectOne(idl.TokenTypeKeywordOf)
		inner := p.parseDataType()
		inner.Dimensions = dims
		inner.Temporary = inner.Temporary || dt.Temporary
		inner.Base = p.base(start)
		return inner
	}
	t := p.peek()
	switch {
	case t.Type == idl.TokenTypeString:
		p.advance()
		dt.TypeName = "Option"
		dt.Value = []idl.Token{t}
	case isWord(t) || t.Type == idl.TokenTypeQuotedIdentifier:
		p.advance()
		dt.TypeName = t.Value
	default:
		p.reportUnexpected(t, "data type")
		dt.Base = p.base(start)
		return dt
	}
	if p.is(idl.TokenTypeSquareOpen) {
		p.advance()
		if l, ok := p.expectOne(idl.TokenTypeInteger); ok {
			n, _ := strconv.Atoi(l.Value)
			dt.Length = optional.Some(n)
		}
		_, _ = p.expectOne(idl.TokenTypeSquareClose)
	}
	if p.is(idl.TokenTypeInteger, idl.TokenTypeQuotedIdentifier) {
		dt.Subtype = p.advance().Value
	}
	if strings.EqualFold(dt.TypeName, "TextConst") {
		dt.Value = p.collectValue()
	}
	dt.Base = p.base(start)
	return dt
}

// collectParenthesized returns a balanced ( ... ) group, parentheses
// included.
func (p *parserCALTokens) collectParenthesized() []idl.Token {
	var out []idl.Token
	depth := 0
	for {
		t := p.peek()
		if t.Type == idl.TokenTypeEOF {
			p.report(t, exc.CodeUnexpectedEOF, "unbalanced (")
			return out
		}
		out = append(out, p.advance())
		switch t.Type {
		case idl.TokenTypeParenOpen:
			depth = depth + 1
		case idl.TokenTypeParenClose:
			depth = depth - 1
			if depth <= 0 {
				return out
			}
		}
	}
}

func (p *parserCALTokens) parseAttribute() *ast.Attribute {
	start := p.advance()
	t := p.peek()
	if !isWord(t) && t.Type != idl.TokenTypeQuotedIdentifier {
		p.reportUnexpected(t, "attribute name")
		p.skipUntil(idl.TokenTypeSquareClose, idl.TokenTypeSquareOpen)
		if p.is(idl.TokenTypeSquareClose) {
			p.advance()
		}
		return nil
	}
	p.advance()
	attr := &ast.Attribute{Name: t.Value, NameToken: t}
	if p.is(idl.TokenTypeParenOpen) {
		attr.RawTokens = p.collectParenthesized()
	}
	if _, ok := p.expectOne(idl.TokenTypeSquareClose); !ok {
		p.skipUntil(idl.TokenTypeSquareClose, idl.TokenTypeSquareOpen)
		if p.is(idl.TokenTypeSquareClose) {
			p.advance()
		}
	}
	attr.Base = p.base(start)
	return attr
}

func (p *parserCALTokens) parseProcedure(attrs []*ast.Attribute) *ast.ProcedureDeclaration {
	start := p.peek()
	if len(attrs) > 0 {
		start = attrs[0].StartToken
	}
	proc := &ast.ProcedureDeclaration{Attributes: attrs}
	if p.is(idl.TokenTypeKeywordLocal) {
		p.advance()
		proc.IsLocal = true
	}
	if _, ok := p.expectOneOf(idl.TokenTypeKeywordProcedure, idl.TokenTypeKeywordFunction); !ok {
		p.skipPastSemicolon()
		return nil
	}
	name, ok := p.parseName("procedure")
	if !ok {
		// The body of a rejected procedure is still consumed so that its
		// statements are not mistaken for declarations.
		p.skipPastSemicolon()
		_, _ = p.parseRoutineBody()
		return nil
	}
	proc.Name = name.Value
	proc.NameToken = name
	if p.is(idl.TokenTypeParenOpen) {
		proc.Parameters = p.parseParameters()
	}
	if isName(p.peek()) && p.peekN(1).Type == idl.TokenTypeColon {
		proc.ReturnName = p.advance().Value
	}
	if p.is(idl.TokenTypeColon) {
		p.advance()
		proc.ReturnType = p.parseDataType()
	}
	if _, ok := p.expectOne(idl.TokenTypeSemicolon); !ok {
		p.skipPastSemicolon()
	}
	proc.Variables, proc.Body = p.parseRoutineBody()
	proc.Base = p.base(start)
	return proc
}

// parseEventTrigger reads EVENT Sender::Name(params); with its body.
func (p *parserCALTokens) parseEventTrigger(attrs []*ast.Attribute) *ast.TriggerDeclaration {
	start := p.advance()
	if len(attrs) > 0 {
		start = attrs[0].StartToken
	}
	trig := &ast.TriggerDeclaration{Kind: ast.TriggerKindEvent, Attributes: attrs}
	first, ok := p.parseName("trigger")
	if !ok {
		p.skipPastSemicolon()
		_, _ = p.parseRoutineBody()
		return nil
	}
	trig.Name = first.Value
	trig.NameToken = first
	if p.is(idl.TokenTypeDoubleColon) {
		p.advance()
		if second, ok := p.parseName("event"); ok {
			trig.Sender = first.Value
			trig.Name = second.Value
			trig.NameToken = second
		}
	}
	if p.is(idl.TokenTypeParenOpen) {
		trig.Parameters = p.parseParameters()
	}
	if _, ok := p.expectOne(idl.TokenTypeSemicolon); !ok {
		p.skipPastSemicolon()
	}
	trig.Variables, trig.Body = p.parseRoutineBody()
	trig.Base = p.base(start)
	return trig
}

// parseDocumentationTrigger reads the BEGIN ... END. that closes CODE.
func (p *parserCALTokens) parseDocumentationTrigger() *ast.TriggerDeclaration {
	start := p.peek()
	body := p.parseBlock()
	if p.is(idl.TokenTypeDot, idl.TokenTypeSemicolon) {
		p.advance()
	}
	return &ast.TriggerDeclaration{
		Base:      p.base(start),
		Name:      "Documentation",
		NameToken: start,
		Kind:      ast.TriggerKindDocumentation,
		Body:      body,
	}
}

// parseRoutineBody reads the optional VAR block and the BEGIN ... END; of a
// procedure or trigger.
func (p *parserCALTokens) parseRoutineBody() ([]*ast.VariableDeclaration, *ast.BlockStatement) {
	var vars []*ast.VariableDeclaration
	if p.is(idl.TokenTypeKeywordVar) {
		p.advance()
		vars = p.parseVarBlock()
	}
	if !p.is(idl.TokenTypeKeywordBegin) {
		p.reportUnexpected(p.peek(), "BEGIN")
		return vars, nil
	}
	body := p.parseBlock()
	if p.is(idl.TokenTypeSemicolon) {
		p.advance()
	}
	return vars, body
}

func (p *parserCALTokens) parseParameters() []*ast.Parameter {
	p.advance()
	var out []*ast.Parameter
	for !p.is(idl.TokenTypeParenClose) && !parameterStop(p.peek().Type) {
		before := p.pos
		out = append(out, p.parseParameter()...)
		switch {
		case p.is(idl.TokenTypeSemicolon):
			p.advance()
		case p.is(idl.TokenTypeParenClose) || parameterStop(p.peek().Type):
		default:
			p.reportUnexpected(p.peek(), "; or )")
			p.skipUntil(idl.TokenTypeSemicolon, idl.TokenTypeParenClose)
		}
		if p.pos == before {
			p.advance()
		}
	}
	_, _ = p.expectOne(idl.TokenTypeParenClose)
	return out
}

func parameterStop(t idl.TokenType) bool {
	return t != idl.TokenTypeKeywordVar && declarationStops[t]
}

func (p *parserCALTokens) parseParameter() []*ast.Parameter {
	start := p.peek()
	isVar := false
	if p.is(idl.TokenTypeKeywordVar) {
		p.advance()
		isVar = true
	}
	var names []idl.Token
	for {
		name, ok := p.parseName("parameter")
		if !ok {
			p.skipUntil(idl.TokenTypeSemicolon, idl.TokenTypeParenClose)
			return nil
		}
		names = append(names, name)
		if !p.is(idl.TokenTypeComma) {
			break
		}
		p.advance()
	}
	if _, ok := p.expectOne(idl.TokenTypeColon); !ok {
		p.skipUntil(idl.TokenTypeSemicolon, idl.TokenTypeParenClose)
		return nil
	}
	dt := p.parseDataType()
	out := make([]*ast.Parameter, 0, len(names))
	for _, name := range names {
		out = append(out, &ast.Parameter{
			Base:      p.base(start),
			Name:      name.Value,
			NameToken: name,
			IsVar:     isVar,
			DataType:  dt,
		})
	}
	return out
}

// Statements

// statementStop reports whether a token ends every statement list. These are
// the tokens that begin the next declaration of a CODE section.
func statementStop(t idl.TokenType) bool {
	switch t {
	case idl.TokenTypeEOF, idl.TokenTypeCurlyClose, idl.TokenTypeSquareOpen,
		idl.TokenTypeKeywordProcedure, idl.TokenTypeKeywordFunction, idl.TokenTypeKeywordLocal,
		idl.TokenTypeKeywordEvent, idl.TokenTypeKeywordTrigger, idl.TokenTypeKeywordVar:
		return true
	}
	return false
}

// skipStatement skips to the end of the current statement, keeping nested
// blocks balanced.
func (p *parserCALTokens) skipStatement() {
	depth := 0
	for {
		t := p.peek()
		switch t.Type {
		case idl.TokenTypeEOF, idl.TokenTypeCurlyClose, idl.TokenTypeKeywordProcedure,
			idl.TokenTypeKeywordFunction, idl.TokenTypeKeywordLocal, idl.TokenTypeKeywordEvent,
			idl.TokenTypeKeywordTrigger:
			return
		case idl.TokenTypeKeywordBegin, idl.TokenTypeKeywordCase, idl.TokenTypeKeywordRepeat:
			depth = depth + 1
		case idl.TokenTypeKeywordEnd, idl.TokenTypeKeywordUntil:
			if depth == 0 {
				return
			}
			depth = depth - 1
		case idl.TokenTypeKeywordElse:
			if depth == 0 {
				return
			}
		case idl.TokenTypeSemicolon:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *parserCALTokens) parseBlock() *ast.BlockStatement {
	start, ok := p.expectOne(idl.TokenTypeKeywordBegin)
	if !ok {
		return nil
	}
	b := &ast.BlockStatement{}
	b.Statements = p.parseStatementList(idl.TokenTypeKeywordEnd)
	_, _ = p.expectOne(idl.TokenTypeKeywordEnd)
	b.Base = p.base(start)
	return b
}

func (p *parserCALTokens) parseStatementList(terminators ...idl.TokenType) []ast.Statement {
	var out []ast.Statement
	for {
		for p.is(idl.TokenTypeSemicolon) {
			p.advance()
		}
		t := p.peek()
		if slices.Contains(terminators, t.Type) || statementStop(t.Type) {
			return out
		}
		before := p.pos
		if s := p.parseStatement(); s != nil {
			out = append(out, s)
		}
		n := p.peek()
		switch {
		case n.Type == idl.TokenTypeSemicolon:
			p.advance()
		case slices.Contains(terminators, n.Type) || statementStop(n.Type):
		case p.pos > before && p.last().Type == idl.TokenTypeSemicolon:
			// Recovery already consumed the separator.
		case p.pos == before:
			p.advance()
		default:
			p.reportUnexpected(n, ";")
			p.skipStatement()
			if p.is(idl.TokenTypeKeywordElse) {
				p.advance()
			}
		}
	}
}

// parseOptionalStatement parses a statement unless the position is empty, as
// in IF x THEN ; or an empty CASE branch.
func (p *parserCALTokens) parseOptionalStatement() ast.Statement {
	t := p.peek()
	switch t.Type {
	case idl.TokenTypeSemicolon, idl.TokenTypeKeywordElse, idl.TokenTypeKeywordEnd, idl.TokenTypeKeywordUntil:
		return nil
	}
	if statementStop(t.Type) {
		return nil
	}
	return p.parseStatement()
}

func (p *parserCALTokens) parseStatement() ast.Statement {
	t := p.peek()
	switch t.Type {
	case idl.TokenTypeKeywordBegin:
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil
	case idl.TokenTypeKeywordIf:
		return p.parseIf()
	case idl.TokenTypeKeywordCase:
		return p.parseCase()
	case idl.TokenTypeKeywordWhile:
		return p.parseWhile()
	case idl.TokenTypeKeywordRepeat:
		return p.parseRepeat()
	case idl.TokenTypeKeywordFor:
		return p.parseFor()
	case idl.TokenTypeKeywordWith:
		return p.parseWith()
	case idl.TokenTypeKeywordExit:
		return p.parseExit()
	case idl.TokenTypeKeywordBreak:
		p.advance()
		return &ast.BreakStatement{Base: p.base(t)}
	}
	if isName(t) {
		return p.parseSimpleStatement()
	}
	p.advance()
	p.reportUnexpected(t, "statement")
	p.skipStatement()
	return nil
}

func (p *parserCALTokens) parseIf() ast.Statement {
	start := p.advance()
	cond := p.parseExpression()
	if cond == nil {
		p.skipStatement()
		return nil
	}
	if _, ok := p.expectOne(idl.TokenTypeKeywordThen); !ok {
		p.skipStatement()
		return nil
	}
	s := &ast.IfStatement{Condition: cond}
	s.Then = p.parseOptionalStatement()
	if p.is(idl.TokenTypeKeywordElse) {
		p.advance()
		s.Else = p.parseOptionalStatement()
	}
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseCase() ast.Statement {
	start := p.advance()
	expr := p.parseExpression()
	if expr == nil {
		p.skipStatement()
		return nil
	}
	if _, ok := p.expectOne(idl.TokenTypeKeywordOf); !ok {
		p.skipStatement()
		return nil
	}
	s := &ast.CaseStatement{Expression: expr}
	for {
		for p.is(idl.TokenTypeSemicolon) {
			p.advance()
		}
		t := p.peek()
		if t.Type == idl.TokenTypeKeywordEnd || statementStop(t.Type) {
			break
		}
		if t.Type == idl.TokenTypeKeywordElse {
			p.advance()
			s.Else = p.parseStatementList(idl.TokenTypeKeywordEnd)
			break
		}
		before := p.pos
		var values []ast.Expression
		for {
			v := p.parseRangeExpression()
			if v == nil {
				break
			}
			values = append(values, v)
			if !p.is(idl.TokenTypeComma) {
				break
			}
			p.advance()
		}
		if _, ok := p.expectOne(idl.TokenTypeColon); !ok {
			p.skipStatement()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		body := p.parseOptionalStatement()
		s.Branches = append(s.Branches, &ast.CaseBranch{
			Base:   p.base(t),
			Values: values,
			Body:   body,
		})
		if !p.is(idl.TokenTypeSemicolon, idl.TokenTypeKeywordEnd, idl.TokenTypeKeywordElse) && !statementStop(p.peek().Type) {
			p.reportUnexpected(p.peek(), ";")
			p.skipStatement()
		}
	}
	_, _ = p.expectOne(idl.TokenTypeKeywordEnd)
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseWhile() ast.Statement {
	start := p.advance()
	cond := p.parseExpression()
	if cond == nil {
		p.skipStatement()
		return nil
	}
	if _, ok := p.expectOne(idl.TokenTypeKeywordDo); !ok {
		p.skipStatement()
		return nil
	}
	s := &ast.WhileStatement{Condition: cond}
	s.Body = p.parseOptionalStatement()
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseRepeat() ast.Statement {
	start := p.advance()
	s := &ast.RepeatStatement{}
	s.Body = p.parseStatementList(idl.TokenTypeKeywordUntil)
	if _, ok := p.expectOne(idl.TokenTypeKeywordUntil); ok {
		s.Condition = p.parseExpression()
	}
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseFor() ast.Statement {
	start := p.advance()
	s := &ast.ForStatement{}
	s.Variable = p.parsePostfix()
	if s.Variable == nil {
		p.skipStatement()
		return nil
	}
	if _, ok := p.expectOne(idl.TokenTypeAssign); !ok {
		p.skipStatement()
		return nil
	}
	s.Initial = p.parseExpression()
	dir, ok := p.expectOneOf(idl.TokenTypeKeywordTo, idl.TokenTypeKeywordDownTo)
	if s.Initial == nil || !ok {
		p.skipStatement()
		return nil
	}
	s.DownTo = dir.Type == idl.TokenTypeKeywordDownTo
	s.Final = p.parseExpression()
	if _, ok := p.expectOne(idl.TokenTypeKeywordDo); s.Final == nil || !ok {
		p.skipStatement()
		return nil
	}
	s.Body = p.parseOptionalStatement()
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseWith() ast.Statement {
	start := p.advance()
	rec := p.parseExpression()
	if rec == nil {
		p.skipStatement()
		return nil
	}
	if _, ok := p.expectOne(idl.TokenTypeKeywordDo); !ok {
		p.skipStatement()
		return nil
	}
	s := &ast.WithStatement{Record: rec}
	s.Body = p.parseOptionalStatement()
	s.Base = p.base(start)
	return s
}

func (p *parserCALTokens) parseExit() ast.Statement {
	start := p.advance()
	s := &ast.ExitStatement{}
	if p.is(idl.TokenTypeParenOpen) {
		p.advance()
		if !p.is(idl.TokenTypeParenClose) {
			s.Value = p.parseExpression()
		}
		if _, ok := p.expectOne(idl.TokenTypeParenClose); !ok {
			p.skipStatement()
		}
	}
	s.Base = p.base(start)
	return s
}

// parseSimpleStatement reads an assignment or a call, both of which start
// with a designator.
func (p *parserCALTokens) parseSimpleStatement() ast.Statement {
	start := p.peek()
	target := p.parsePostfix()
	if target == nil {
		p.skipStatement()
		return nil
	}
	switch p.peek().Type {
	case idl.TokenTypeAssign, idl.TokenTypePlusAssign, idl.TokenTypeMinusAssign,
		idl.TokenTypeMultiplyAssign, idl.TokenTypeDivideAssign:
		op := p.advance()
		value := p.parseExpression()
		if value == nil {
			p.skipStatement()
			return nil
		}
		return &ast.AssignmentStatement{
			Base:     p.base(start),
			Target:   target,
			Operator: op.Value,
			Value:    value,
		}
	}
	return &ast.CallStatement{Base: p.base(start), Expression: target}
}

// Expressions

func (p *parserCALTokens) parseExpression() ast.Expression {
	return p.parseRelational()
}

// parseRangeExpression accepts a..b where value lists allow it.
func (p *parserCALTokens) parseRangeExpression() ast.Expression {
	left := p.parseExpression()
	if left == nil || !p.is(idl.TokenTypeDotDot) {
		return left
	}
	op := p.advance()
	right := p.parseExpression()
	if right == nil {
		return left
	}
	return binary(op, left, right)
}

func isRelational(t idl.TokenType) bool {
	switch t {
	case idl.TokenTypeEqual, idl.TokenTypeNotEqual, idl.TokenTypeAngleOpen, idl.TokenTypeLesserEqual,
		idl.TokenTypeAngleClose, idl.TokenTypeGreaterEqual, idl.TokenTypeKeywordIn:
		return true
	}
	return false
}

func isAdditive(t idl.TokenType) bool {
	switch t {
	case idl.TokenTypePlus, idl.TokenTypeMinus, idl.TokenTypeKeywordOr, idl.TokenTypeKeywordXor:
		return true
	}
	return false
}

func isMultiplicative(t idl.TokenType) bool {
	switch t {
	case idl.TokenTypeStar, idl.TokenTypeSlash, idl.TokenTypeKeywordDiv, idl.TokenTypeKeywordMod, idl.TokenTypeKeywordAnd:
		return true
	}
	return false
}

func (p *parserCALTokens) parseRelational() ast.Expression {
	left := p.parseAdditive()
	for left != nil && isRelational(p.peek().Type) {
		op := p.advance()
		right := p.parseAdditive()
		if right == nil {
			return left
		}
		left = binary(op, left, right)
	}
	return left
}

func (p *parserCALTokens) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for left != nil && isAdditive(p.peek().Type) {
		op := p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return left
		}
		left = binary(op, left, right)
	}
	return left
}

func (p *parserCALTokens) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for left != nil && isMultiplicative(p.peek().Type) {
		op := p.advance()
		right := p.parseUnary()
		if right == nil {
			return left
		}
		left = binary(op, left, right)
	}
	return left
}

func (p *parserCALTokens) parseUnary() ast.Expression {
	t := p.peek()
	switch t.Type {
	case idl.TokenTypeKeywordNot, idl.TokenTypeMinus, idl.TokenTypePlus:
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{
			Base:     ast.Base{StartToken: t, EndToken: operand.End()},
			Operator: t.Type.String(),
			Operand:  operand,
		}
	}
	return p.parsePostfix()
}

func (p *parserCALTokens) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch p.peek().Type {
		case idl.TokenTypeDot, idl.TokenTypeDoubleColon:
			op := p.advance()
			m := p.peek()
			if !isWord(m) && m.Type != idl.TokenTypeQuotedIdentifier && m.Type != idl.TokenTypeInteger {
				p.reportUnexpected(m, "member name")
				return expr
			}
			p.advance()
			expr = &ast.MemberAccess{
				Base:     ast.Base{StartToken: expr.Start(), EndToken: m},
				Object:   expr,
				Operator: op.Value,
				Member: &ast.Identifier{
					Base:     ast.Base{StartToken: m, EndToken: m},
					Name:     m.Value,
					IsQuoted: m.Type == idl.TokenTypeQuotedIdentifier,
				},
			}
		case idl.TokenTypeParenOpen:
			args := p.parseArguments(idl.TokenTypeParenClose)
			expr = &ast.Call{
				Base:      ast.Base{StartToken: expr.Start(), EndToken: p.last()},
				Callee:    expr,
				Arguments: args,
			}
		case idl.TokenTypeSquareOpen:
			indices := p.parseArguments(idl.TokenTypeSquareClose)
			expr = &ast.Index{
				Base:    ast.Base{StartToken: expr.Start(), EndToken: p.last()},
				Target:  expr,
				Indices: indices,
			}
		default:
			return expr
		}
	}
}

// parseArguments reads a delimited, comma separated expression list. The
// current token is the opening delimiter.
func (p *parserCALTokens) parseArguments(closing idl.TokenType) []ast.Expression {
	p.advance()
	var out []ast.Expression
	if p.is(closing) {
		p.advance()
		return out
	}
	for {
		a := p.parseRangeExpression()
		if a == nil {
			p.skipArguments(closing)
			return out
		}
		out = append(out, a)
		if p.is(idl.TokenTypeComma) {
			p.advance()
			continue
		}
		if _, ok := p.expectOne(closing); !ok {
			p.skipArguments(closing)
		}
		return out
	}
}

// skipArguments skips to the closing delimiter of a malformed list without
// leaving the statement.
func (p *parserCALTokens) skipArguments(closing idl.TokenType) {
	for {
		t := p.peek()
		switch {
		case t.Type == closing:
			p.advance()
			return
		case t.Type == idl.TokenTypeSemicolon || t.Type == idl.TokenTypeKeywordEnd || statementStop(t.Type):
			return
		}
		p.advance()
	}
}

func (p *parserCALTokens) parsePrimary() ast.Expression {
	t := p.peek()
	literal := func(kind ast.LiteralKind) ast.Expression {
		p.advance()
		return &ast.Literal{Base: ast.Base{StartToken: t, EndToken: t}, Kind: kind, Value: t.Value}
	}
	switch t.Type {
	case idl.TokenTypeInteger:
		return literal(ast.LiteralKindInteger)
	case idl.TokenTypeDecimal:
		return literal(ast.LiteralKindDecimal)
	case idl.TokenTypeString:
		return literal(ast.LiteralKindString)
	case idl.TokenTypeDate:
		return literal(ast.LiteralKindDate)
	case idl.TokenTypeTime:
		return literal(ast.LiteralKindTime)
	case idl.TokenTypeDateTime:
		return literal(ast.LiteralKindDateTime)
	case idl.TokenTypeKeywordTrue, idl.TokenTypeKeywordFalse:
		return literal(ast.LiteralKindBoolean)
	case idl.TokenTypeParenOpen:
		p.advance()
		inner := p.parseExpression()
		if inner == nil {
			p.skipArguments(idl.TokenTypeParenClose)
			return nil
		}
		_, _ = p.expectOne(idl.TokenTypeParenClose)
		return inner
	case idl.TokenTypeSquareOpen:
		elements := p.parseArguments(idl.TokenTypeSquareClose)
		return &ast.Set{Base: p.base(t), Elements: elements}
	}
	if isName(t) {
		p.advance()
		return &ast.Identifier{
			Base:     ast.Base{StartToken: t, EndToken: t},
			Name:     t.Value,
			IsQuoted: t.Type == idl.TokenTypeQuotedIdentifier,
		}
	}
	p.reportUnexpected(t, "expression")
	return nil
}

func binary(op idl.Token, left ast.Expression, right ast.Expression) *ast.BinaryOp {
	return &ast.BinaryOp{
		Base:     ast.Base{StartToken: left.Start(), EndToken: right.End()},
		Operator: op.Type.String(),
		Left:     left,
		Right:    right,
	}
}

// isName reports whether a token can stand where a name is expected.
func isName(t idl.Token) bool {
	return t.Type == idl.TokenTypeQuotedIdentifier || IsAllowedAsIdentifier(t.Type)
}

// isWord reports whether a token is word shaped, keyword or not.
func isWord(t idl.Token) bool {
	return t.Type == idl.TokenTypeIdentifier || t.Type.IsKeyword()
}

// joinValues rebuilds names such as "No." or "Name 2" from their tokens,
// separating tokens that were apart in the source by one space.
func joinValues(toks []idl.Token) string {
	var builder strings.Builder
	for x, t := range toks {
		if x > 0 && t.StartOffset() > toks[x-1].EndOffset() {
			_ = builder.WriteByte(' ')
		}
		_, _ = builder.WriteString(t.Value)
	}
	return builder.String()
}

func splitValues(toks []idl.Token, sep idl.TokenType) []string {
	var out []string
	var current []idl.Token
	for _, t := range toks {
		if t.Type == sep {
			out = append(out, joinValues(current))
			current = nil
			continue
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		out = append(out, joinValues(current))
	}
	return out
}

func describe(t idl.Token) string {
	if t.Type == idl.TokenTypeEOF {
		return "EOF"
	}
	if v := FormatToken(t); v != "" {
		return v
	}
	return t.Type.String()
}
