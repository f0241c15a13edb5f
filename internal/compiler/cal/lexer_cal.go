// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/iter"
	"github.com/calfront/calfront/internal/optional"
)

const (
	lexerCALLookahead = 8

	rawDataMarker    = "END_OF_RDLDATA"
	wordLayoutMarker = "END_OF_WORDLAYOUT"
)

var _ idl.Lexer = (*LexerCAL)(nil)

// LexerCAL implements a tokenizer for exported C/AL object text.
type LexerCAL struct {
	reporter exc.Reporter
}

func NewLexer(reporter exc.Reporter) *LexerCAL {
	return &LexerCAL{reporter: reporter}
}

func (self *LexerCAL) Lex(ctx context.Context, f idl.File) (idl.LexerFile, error) {
	return &lexerFileCAL{
		File:     f,
		reporter: self.reporter,
	}, nil
}

// Tokenize converts source text into tokens. It never fails: malformed input
// produces Unknown tokens. The last token is always a zero width EOF.
// Offsets are byte offsets into source, also when it is not valid UTF-8.
func Tokenize(source string) []idl.Token {
	ctx := context.Background()
	points := iter.NewLookahead(iter.NewUnicodeString(source), lexerCALLookahead)
	toks, _ := iter.Collect(ctx, newLexerTokens("", points, exc.NewReporterDiscard()))
	return toks
}

type lexerFileCAL struct {
	idl.File
	reporter exc.Reporter
}

func (self *lexerFileCAL) Tokens(ctx context.Context) ([]idl.Token, error) {
	b, err := self.File.Body(ctx)
	if err != nil {
		return nil, err
	}
	points := iter.NewLookahead(iter.NewUnicodeFileBodyCtx(ctx, b), lexerCALLookahead)
	return iter.Collect(ctx, newLexerTokens(self.File.Path(ctx), points, self.reporter))
}

// lexerFrame is the context of one open curly brace. Frames are pushed on
// "{" and popped on "}" so nothing recorded in a frame outlives its block.
type lexerFrame struct {
	// section is the section keyword the frame belongs to. Nested frames
	// inherit it from their parent.
	section idl.TokenType
	// code counts open BEGIN and CASE blocks of a property trigger
	// (OnValidate=BEGIN ... END;) inside a non-CODE section.
	code int
	// square counts open square brackets in property values.
	square int
	// varPending is set after "=VAR" until the trigger body begins.
	varPending bool
}

type lexerCALTokens struct {
	uri      string
	body     idl.Lookahead[idl.CodePoint]
	reporter exc.Reporter
	// pos is the location of the next unread code point.
	pos     idl.Location
	started bool
	frames  []lexerFrame
	// pending is the section keyword seen in the object body that is still
	// waiting for its opening brace.
	pending idl.TokenType
	prev    idl.TokenType
	raw     idl.TokenType
	// headerLine is the line of the last OBJECT keyword read outside braces.
	headerLine int32
	done       bool
}

func newLexerTokens(uri string, body idl.Lookahead[idl.CodePoint], reporter exc.Reporter) *lexerCALTokens {
	return &lexerCALTokens{
		uri:      uri,
		body:     body,
		reporter: reporter,
		pos:      idl.Location{Line: 1, Column: 1, Offset: 0},
		pending:  idl.TokenTypeUnknown,
		prev:     idl.TokenTypeUnknown,
		raw:      idl.TokenTypeUnknown,
	}
}

func (self *lexerCALTokens) Next(ctx context.Context) optional.Optional[idl.Token] {
	if self.done {
		return optional.None[idl.Token]()
	}
	if self.raw != idl.TokenTypeUnknown {
		marker := rawDataMarker
		if self.raw == idl.TokenTypeKeywordWordLayout {
			marker = wordLayoutMarker
		}
		self.raw = idl.TokenTypeUnknown
		if t, ok := self.readRaw(ctx, marker); ok {
			return optional.Some(t)
		}
	}
	for {
		start := self.pos
		r, ok := self.next(ctx)
		if !ok {
			self.done = true
			return optional.Some(idl.Token{
				Span: idl.Span{Start: start, End: start},
				Type: idl.TokenTypeEOF,
			})
		}
		if r == '\uFEFF' && start.Offset == 0 {
			continue
		}
		if r == 0 || unicode.IsSpace(r) {
			continue
		}
		t := self.scan(ctx, start, r)
		if t.Type != idl.TokenTypeComment {
			self.observe(t)
		}
		return optional.Some(t)
	}
}

func (self *lexerCALTokens) scan(ctx context.Context, start idl.Location, r rune) idl.Token {
	switch r {
	case '{':
		if self.inCode() {
			return self.readBraceComment(ctx, start)
		}
		self.push()
		return self.token(start, idl.TokenTypeCurlyOpen, "{")
	case '}':
		if len(self.frames) > 0 {
			self.frames = self.frames[:len(self.frames)-1]
		}
		return self.token(start, idl.TokenTypeCurlyClose, "}")
	case '[':
		if f := self.top(); f != nil {
			f.square = f.square + 1
		}
		return self.token(start, idl.TokenTypeSquareOpen, "[")
	case ']':
		if f := self.top(); f != nil && f.square > 0 {
			f.square = f.square - 1
		}
		return self.token(start, idl.TokenTypeSquareClose, "]")
	case '(':
		return self.token(start, idl.TokenTypeParenOpen, "(")
	case ')':
		return self.token(start, idl.TokenTypeParenClose, ")")
	case ';':
		return self.token(start, idl.TokenTypeSemicolon, ";")
	case ',':
		return self.token(start, idl.TokenTypeComma, ",")
	case '=':
		return self.token(start, idl.TokenTypeEqual, "=")
	case ':':
		switch self.peekRune(ctx, 0) {
		case ':':
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeDoubleColon, "::")
		case '=':
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeAssign, ":=")
		default:
			return self.token(start, idl.TokenTypeColon, ":")
		}
	case '.':
		if self.peekRune(ctx, 0) == '.' {
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeDotDot, "..")
		}
		return self.token(start, idl.TokenTypeDot, ".")
	case '+':
		return self.withAssign(ctx, start, idl.TokenTypePlus, idl.TokenTypePlusAssign, "+")
	case '-':
		return self.withAssign(ctx, start, idl.TokenTypeMinus, idl.TokenTypeMinusAssign, "-")
	case '*':
		return self.withAssign(ctx, start, idl.TokenTypeStar, idl.TokenTypeMultiplyAssign, "*")
	case '/':
		switch self.peekRune(ctx, 0) {
		case '/':
			_, _ = self.next(ctx)
			return self.readCommentLine(ctx, start)
		case '*':
			_, _ = self.next(ctx)
			return self.readCommentBlock(ctx, start)
		}
		return self.withAssign(ctx, start, idl.TokenTypeSlash, idl.TokenTypeDivideAssign, "/")
	case '<':
		switch self.peekRune(ctx, 0) {
		case '=':
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeLesserEqual, "<=")
		case '>':
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeNotEqual, "<>")
		default:
			return self.token(start, idl.TokenTypeAngleOpen, "<")
		}
	case '>':
		if self.peekRune(ctx, 0) == '=' {
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeGreaterEqual, ">=")
		}
		return self.token(start, idl.TokenTypeAngleClose, ">")
	case '\'':
		if self.freeText(start) {
			// An apostrophe in a name or caption (Customer's Name).
			return self.token(start, idl.TokenTypeUnknown, "'")
		}
		return self.readString(ctx, start)
	case '"':
		return self.readQuotedIdentifier(ctx, start)
	}
	if isDigit(r) {
		return self.readNumber(ctx, start, r)
	}
	if isWordStart(r) {
		return self.readWord(ctx, start, r)
	}
	if !self.freeText(start) {
		_ = self.reporter.Report(self.exc(start, exc.CodeInvalidCharacter, "unexpected character "+string(r)))
	}
	return self.token(start, idl.TokenTypeUnknown, string(r))
}

func (self *lexerCALTokens) withAssign(ctx context.Context, start idl.Location, plain idl.TokenType, assign idl.TokenType, v string) idl.Token {
	if self.peekRune(ctx, 0) == '=' {
		_, _ = self.next(ctx)
		return self.token(start, assign, v+"=")
	}
	return self.token(start, plain, v)
}

func (self *lexerCALTokens) readWord(ctx context.Context, start idl.Location, first rune) idl.Token {
	var builder strings.Builder
	_, _ = builder.WriteRune(first)
	for {
		r, ok := self.peek(ctx, 0)
		if !ok || !isWordPart(r) {
			break
		}
		_, _ = self.next(ctx)
		_, _ = builder.WriteRune(r)
	}
	word := builder.String()
	suffixed := self.readIDSuffix(ctx)
	kind := idl.TokenTypeIdentifier
	if k, ok := LookupKeyword(word); ok {
		kind = k
		switch {
		case suffixed && allowedAsIdentifier[k]:
			kind = idl.TokenTypeIdentifier
		case k == idl.TokenTypeKeywordCode && len(self.frames) > 1:
			// Below the object body CODE can only be the data type.
			kind = idl.TokenTypeIdentifier
		case k == idl.TokenTypeKeywordObject && start.Column == 1 && self.peekRune(ctx, 0) == ' ':
			// An object header in the first column starts the next object
			// of an export even when the previous one was never closed.
			self.frames = self.frames[:0]
			self.pending = idl.TokenTypeUnknown
		}
	}
	if kind == idl.TokenTypeKeywordObject && len(self.frames) == 0 {
		self.headerLine = start.Line
	}
	t := self.token(start, kind, word)
	self.trackTrigger(ctx, t)
	return t
}

// readIDSuffix consumes an @<digits> suffix following a name.
func (self *lexerCALTokens) readIDSuffix(ctx context.Context) bool {
	if self.peekRune(ctx, 0) != '@' || !isDigit(self.peekRune(ctx, 1)) {
		return false
	}
	_, _ = self.next(ctx)
	for isDigit(self.peekRune(ctx, 0)) {
		_, _ = self.next(ctx)
	}
	return true
}

// trackTrigger follows property triggers in non-CODE sections so that braces
// inside their bodies are read as comments.
func (self *lexerCALTokens) trackTrigger(ctx context.Context, t idl.Token) {
	f := self.top()
	if f == nil || f.section == idl.TokenTypeKeywordCode || len(self.frames) < 2 {
		return
	}
	switch t.Type {
	case idl.TokenTypeKeywordBegin:
		if f.code > 0 {
			f.code = f.code + 1
			return
		}
		if f.square == 0 && (self.prev == idl.TokenTypeEqual || f.varPending) && self.lineEnds(ctx) {
			f.code = 1
			f.varPending = false
		}
	case idl.TokenTypeKeywordCase:
		if f.code > 0 {
			f.code = f.code + 1
		}
	case idl.TokenTypeKeywordEnd:
		if f.code > 0 {
			f.code = f.code - 1
		}
	case idl.TokenTypeKeywordVar:
		if f.code == 0 && f.square == 0 && self.prev == idl.TokenTypeEqual && self.lineEnds(ctx) {
			f.varPending = true
		}
	}
}

// lineEnds reports whether only blanks remain on the current line within the
// lookahead window.
func (self *lexerCALTokens) lineEnds(ctx context.Context) bool {
	for x := uint8(0); x < lexerCALLookahead-1; x = x + 1 {
		r, ok := self.peek(ctx, x)
		if !ok || r == '\n' || r == '\r' {
			return true
		}
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return false
}

func (self *lexerCALTokens) readNumber(ctx context.Context, start idl.Location, first rune) idl.Token {
	var builder strings.Builder
	_, _ = builder.WriteRune(first)
	self.readDigits(ctx, &builder)
	kind := idl.TokenTypeInteger
	if self.peekRune(ctx, 0) == '.' && isDigit(self.peekRune(ctx, 1)) {
		r, _ := self.next(ctx)
		_, _ = builder.WriteRune(r)
		self.readDigits(ctx, &builder)
		kind = idl.TokenTypeDecimal
	}
	s0 := self.peekRune(ctx, 0)
	s1 := self.peekRune(ctx, 1)
	switch {
	case (s0 == 'd' || s0 == 'D') && (s1 == 't' || s1 == 'T') && !isWordPart(self.peekRune(ctx, 2)):
		_, _ = self.next(ctx)
		_, _ = self.next(ctx)
		_, _ = builder.WriteRune(s0)
		_, _ = builder.WriteRune(s1)
		kind = idl.TokenTypeDateTime
	case (s0 == 'd' || s0 == 'D') && !isWordPart(s1):
		_, _ = self.next(ctx)
		_, _ = builder.WriteRune(s0)
		kind = idl.TokenTypeDate
	case (s0 == 't' || s0 == 'T') && !isWordPart(s1):
		_, _ = self.next(ctx)
		_, _ = builder.WriteRune(s0)
		kind = idl.TokenTypeTime
	}
	return self.token(start, kind, builder.String())
}

func (self *lexerCALTokens) readDigits(ctx context.Context, builder *strings.Builder) {
	for isDigit(self.peekRune(ctx, 0)) {
		r, _ := self.next(ctx)
		_, _ = builder.WriteRune(r)
	}
}

// readString reads a single quoted literal. A doubled quote is an escaped
// quote. Strings never span lines: a literal still open at the end of the
// line becomes an Unknown token holding the raw text.
func (self *lexerCALTokens) readString(ctx context.Context, start idl.Location) idl.Token {
	var value strings.Builder
	var raw strings.Builder
	_, _ = raw.WriteRune('\'')
	for {
		r, ok := self.peek(ctx, 0)
		if !ok || r == '\n' || r == '\r' {
			_ = self.reporter.Report(self.exc(start, exc.CodeUnterminatedString, "unterminated string literal"))
			return self.token(start, idl.TokenTypeUnknown, raw.String())
		}
		_, _ = self.next(ctx)
		_, _ = raw.WriteRune(r)
		if r != '\'' {
			_, _ = value.WriteRune(r)
			continue
		}
		if self.peekRune(ctx, 0) != '\'' {
			return self.token(start, idl.TokenTypeString, value.String())
		}
		_, _ = self.next(ctx)
		_, _ = raw.WriteRune('\'')
		_, _ = value.WriteRune('\'')
	}
}

// readQuotedIdentifier reads a double quoted name. In free text a quote that
// is never closed stands for itself and ends before the next ; or } so the
// item around it stays intact.
func (self *lexerCALTokens) readQuotedIdentifier(ctx context.Context, start idl.Location) idl.Token {
	text := self.freeText(start)
	var value strings.Builder
	for {
		r, ok := self.peek(ctx, 0)
		if text && (!ok || r == '\n' || r == '\r' || r == ';' || r == '}') {
			return self.token(start, idl.TokenTypeUnknown, `"`+strings.TrimRight(value.String(), " \t"))
		}
		if !ok || r == '\n' || r == '\r' {
			_ = self.reporter.Report(self.exc(start, exc.CodeUnterminatedString, "unterminated quoted identifier"))
			return self.token(start, idl.TokenTypeUnknown, `"`+value.String())
		}
		_, _ = self.next(ctx)
		if r == '"' {
			break
		}
		_, _ = value.WriteRune(r)
	}
	_ = self.readIDSuffix(ctx)
	return self.token(start, idl.TokenTypeQuotedIdentifier, value.String())
}

func (self *lexerCALTokens) readCommentLine(ctx context.Context, start idl.Location) idl.Token {
	var builder strings.Builder
	for {
		r, ok := self.peek(ctx, 0)
		if !ok || r == '\n' || r == '\r' {
			return self.token(start, idl.TokenTypeComment, builder.String())
		}
		_, _ = self.next(ctx)
		_, _ = builder.WriteRune(r)
	}
}

func (self *lexerCALTokens) readCommentBlock(ctx context.Context, start idl.Location) idl.Token {
	var builder strings.Builder
	for {
		r, ok := self.next(ctx)
		if !ok {
			_ = self.reporter.Report(self.exc(start, exc.CodeUnterminatedComment, "EOF while reading comment block"))
			return self.token(start, idl.TokenTypeComment, builder.String())
		}
		if r == '*' && self.peekRune(ctx, 0) == '/' {
			_, _ = self.next(ctx)
			return self.token(start, idl.TokenTypeComment, builder.String())
		}
		_, _ = builder.WriteRune(r)
	}
}

// readBraceComment reads a { ... } comment inside code. Braces nest.
func (self *lexerCALTokens) readBraceComment(ctx context.Context, start idl.Location) idl.Token {
	var builder strings.Builder
	depth := 1
	for {
		r, ok := self.next(ctx)
		if !ok {
			_ = self.reporter.Report(self.exc(start, exc.CodeUnterminatedComment, "EOF while reading brace comment"))
			return self.token(start, idl.TokenTypeComment, builder.String())
		}
		switch r {
		case '{':
			depth = depth + 1
		case '}':
			depth = depth - 1
			if depth == 0 {
				return self.token(start, idl.TokenTypeComment, builder.String())
			}
		}
		_, _ = builder.WriteRune(r)
	}
}

// readRaw reads an opaque layout body up to and including its end marker.
// An empty body produces no token.
func (self *lexerCALTokens) readRaw(ctx context.Context, marker string) (idl.Token, bool) {
	for {
		r, ok := self.peek(ctx, 0)
		if !ok || r == '}' {
			return idl.Token{}, false
		}
		if !unicode.IsSpace(r) {
			break
		}
		_, _ = self.next(ctx)
	}
	start := self.pos
	var builder strings.Builder
	for {
		r, ok := self.next(ctx)
		if !ok {
			_ = self.reporter.Report(self.exc(start, exc.CodeUnexpectedEOF, "EOF before "+marker))
			return self.token(start, idl.TokenTypeRawData, builder.String()), true
		}
		_, _ = builder.WriteRune(r)
		if r == rune(marker[len(marker)-1]) && strings.HasSuffix(builder.String(), marker) {
			v := builder.String()
			return self.token(start, idl.TokenTypeRawData, strings.TrimRight(v[:len(v)-len(marker)], " \t\r\n")), true
		}
	}
}

func (self *lexerCALTokens) observe(t idl.Token) {
	if len(self.frames) == 1 && IsSectionKeyword(t.Type) {
		self.pending = t.Type
	}
	self.prev = t.Type
}

func (self *lexerCALTokens) push() {
	section := idl.TokenTypeUnknown
	switch {
	case len(self.frames) == 1:
		section = self.pending
	case len(self.frames) > 1:
		section = self.frames[len(self.frames)-1].section
	}
	self.pending = idl.TokenTypeUnknown
	self.frames = append(self.frames, lexerFrame{section: section})
	if len(self.frames) == 2 && (section == idl.TokenTypeKeywordRDLData || section == idl.TokenTypeKeywordWordLayout) {
		self.raw = section
	}
}

func (self *lexerCALTokens) top() *lexerFrame {
	if len(self.frames) == 0 {
		return nil
	}
	return &self.frames[len(self.frames)-1]
}

// freeText reports whether start lies in object metadata, where names and
// captions are unquoted text: the header line and section bodies outside
// property triggers.
func (self *lexerCALTokens) freeText(start idl.Location) bool {
	f := self.top()
	if f == nil {
		return start.Line == self.headerLine
	}
	return len(self.frames) > 1 && f.section != idl.TokenTypeKeywordCode && f.code == 0 && !f.varPending
}

func (self *lexerCALTokens) inCode() bool {
	f := self.top()
	if f == nil {
		return false
	}
	return f.section == idl.TokenTypeKeywordCode || f.code > 0
}

func (self *lexerCALTokens) peek(ctx context.Context, n uint8) (rune, bool) {
	if self.started {
		n = n + 1
	}
	p := self.body.Lookahead(ctx, n)
	if !p.IsPresent() {
		return 0, false
	}
	return rune(p.Value()), true
}

// peekRune is peek with end of input mapped to the zero rune.
func (self *lexerCALTokens) peekRune(ctx context.Context, n uint8) rune {
	r, _ := self.peek(ctx, n)
	return r
}

func (self *lexerCALTokens) next(ctx context.Context) (rune, bool) {
	p := self.body.Next(ctx)
	self.started = true
	if !p.IsPresent() {
		return 0, false
	}
	r := rune(p.Value())
	width := utf8.RuneLen(r)
	if iter.IsInvalidByte(p.Value()) {
		r = utf8.RuneError
		width = 1
	}
	self.pos.Offset = self.pos.Offset + int64(width)
	if r == '\n' {
		self.pos.Line = self.pos.Line + 1
		self.pos.Column = 1
	} else {
		self.pos.Column = self.pos.Column + 1
	}
	return r, true
}

func (self *lexerCALTokens) token(start idl.Location, kind idl.TokenType, value string) idl.Token {
	return idl.Token{
		Span:  idl.Span{Start: start, End: self.pos},
		Type:  kind,
		Value: value,
	}
}

func (self *lexerCALTokens) exc(at idl.Location, code string, message string) exc.Exception {
	return exc.New(exc.Location{URI: self.uri, Location: at}, code, message)
}

func (self *lexerCALTokens) Close(ctx context.Context) error {
	return self.body.Close(ctx)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
