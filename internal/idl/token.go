// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package idl

import "fmt"

// Location is a point in a source file. Line and Column are 1-based and
// Column counts code points. Offset is a 0-based byte offset.
type Location struct {
	Line   int32
	Column int32
	Offset int64
}

type Span struct {
	Start Location
	End   Location
}

// Token is one lexical element of C/AL source. For String and
// QuotedIdentifier tokens Value holds the unescaped payload without the
// surrounding quotes.
type Token struct {
	Span  Span
	Type  TokenType
	Value string
}

func (t Token) Line() int32 {
	return t.Span.Start.Line
}

func (t Token) Column() int32 {
	return t.Span.Start.Column
}

func (t Token) StartOffset() int64 {
	return t.Span.Start.Offset
}

func (t Token) EndOffset() int64 {
	return t.Span.End.Offset
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Value, t.Span.Start.Line, t.Span.Start.Column)
}

type TokenType uint16

const (
	TokenTypeUnknown TokenType = iota
	TokenTypeEOF
	TokenTypeComment
	TokenTypeRawData

	TokenTypeIdentifier
	TokenTypeQuotedIdentifier
	TokenTypeString
	TokenTypeInteger
	TokenTypeDecimal
	TokenTypeDate
	TokenTypeTime
	TokenTypeDateTime

	TokenTypeCurlyOpen
	TokenTypeCurlyClose
	TokenTypeSquareOpen
	TokenTypeSquareClose
	TokenTypeParenOpen
	TokenTypeParenClose
	TokenTypeSemicolon
	TokenTypeColon
	TokenTypeDoubleColon
	TokenTypeComma
	TokenTypeDot
	TokenTypeDotDot
	TokenTypeAssign
	TokenTypePlusAssign
	TokenTypeMinusAssign
	TokenTypeMultiplyAssign
	TokenTypeDivideAssign
	TokenTypePlus
	TokenTypeMinus
	TokenTypeStar
	TokenTypeSlash
	TokenTypeEqual
	TokenTypeNotEqual
	TokenTypeAngleOpen
	TokenTypeLesserEqual
	TokenTypeAngleClose
	TokenTypeGreaterEqual

	// object types
	TokenTypeKeywordObject
	TokenTypeKeywordTable
	TokenTypeKeywordPage
	TokenTypeKeywordReport
	TokenTypeKeywordCodeunit
	TokenTypeKeywordQuery
	TokenTypeKeywordXMLport
	TokenTypeKeywordMenuSuite
	TokenTypeKeywordForm
	TokenTypeKeywordDataport

	// sections
	TokenTypeKeywordProperties
	TokenTypeKeywordFields
	TokenTypeKeywordKeys
	TokenTypeKeywordFieldGroups
	TokenTypeKeywordCode
	TokenTypeKeywordControls
	TokenTypeKeywordActions
	TokenTypeKeywordElements
	TokenTypeKeywordEvents
	TokenTypeKeywordRequestPage
	TokenTypeKeywordRequestForm
	TokenTypeKeywordDataset
	TokenTypeKeywordLabels
	TokenTypeKeywordMenuNodes
	TokenTypeKeywordRDLData
	TokenTypeKeywordWordLayout
	TokenTypeKeywordDataItems
	TokenTypeKeywordSections

	// control flow
	TokenTypeKeywordBegin
	TokenTypeKeywordEnd
	TokenTypeKeywordIf
	TokenTypeKeywordThen
	TokenTypeKeywordElse
	TokenTypeKeywordCase
	TokenTypeKeywordOf
	TokenTypeKeywordWhile
	TokenTypeKeywordDo
	TokenTypeKeywordRepeat
	TokenTypeKeywordUntil
	TokenTypeKeywordFor
	TokenTypeKeywordTo
	TokenTypeKeywordDownTo
	TokenTypeKeywordWith
	TokenTypeKeywordExit
	TokenTypeKeywordBreak

	// declarations
	TokenTypeKeywordProcedure
	TokenTypeKeywordFunction
	TokenTypeKeywordLocal
	TokenTypeKeywordVar
	TokenTypeKeywordTrigger
	TokenTypeKeywordEvent
	TokenTypeKeywordArray
	TokenTypeKeywordTemporary
	TokenTypeKeywordWithEvents
	TokenTypeKeywordRunOnClient
	TokenTypeKeywordInDataSet
	TokenTypeKeywordSecurityFiltering

	// constants
	TokenTypeKeywordTrue
	TokenTypeKeywordFalse

	// operators
	TokenTypeKeywordDiv
	TokenTypeKeywordMod
	TokenTypeKeywordAnd
	TokenTypeKeywordOr
	TokenTypeKeywordNot
	TokenTypeKeywordXor
	TokenTypeKeywordIn

	tokenTypeCount
)

var tokenTypeNames = [tokenTypeCount]string{
	TokenTypeUnknown:          "Unknown",
	TokenTypeEOF:              "EOF",
	TokenTypeComment:          "Comment",
	TokenTypeRawData:          "RawData",
	TokenTypeIdentifier:       "Identifier",
	TokenTypeQuotedIdentifier: "QuotedIdentifier",
	TokenTypeString:           "String",
	TokenTypeInteger:          "Integer",
	TokenTypeDecimal:          "Decimal",
	TokenTypeDate:             "Date",
	TokenTypeTime:             "Time",
	TokenTypeDateTime:         "DateTime",

	TokenTypeCurlyOpen:      "{",
	TokenTypeCurlyClose:     "}",
	TokenTypeSquareOpen:     "[",
	TokenTypeSquareClose:    "]",
	TokenTypeParenOpen:      "(",
	TokenTypeParenClose:     ")",
	TokenTypeSemicolon:      ";",
	TokenTypeColon:          ":",
	TokenTypeDoubleColon:    "::",
	TokenTypeComma:          ",",
	TokenTypeDot:            ".",
	TokenTypeDotDot:         "..",
	TokenTypeAssign:         ":=",
	TokenTypePlusAssign:     "+=",
	TokenTypeMinusAssign:    "-=",
	TokenTypeMultiplyAssign: "*=",
	TokenTypeDivideAssign:   "/=",
	TokenTypePlus:           "+",
	TokenTypeMinus:          "-",
	TokenTypeStar:           "*",
	TokenTypeSlash:          "/",
	TokenTypeEqual:          "=",
	TokenTypeNotEqual:       "<>",
	TokenTypeAngleOpen:      "<",
	TokenTypeLesserEqual:    "<=",
	TokenTypeAngleClose:     ">",
	TokenTypeGreaterEqual:   ">=",

	TokenTypeKeywordObject:    "OBJECT",
	TokenTypeKeywordTable:     "TABLE",
	TokenTypeKeywordPage:      "PAGE",
	TokenTypeKeywordReport:    "REPORT",
	TokenTypeKeywordCodeunit:  "CODEUNIT",
	TokenTypeKeywordQuery:     "QUERY",
	TokenTypeKeywordXMLport:   "XMLPORT",
	TokenTypeKeywordMenuSuite: "MENUSUITE",
	TokenTypeKeywordForm:      "FORM",
	TokenTypeKeywordDataport:  "DATAPORT",

	TokenTypeKeywordProperties:  "PROPERTIES",
	TokenTypeKeywordFields:      "FIELDS",
	TokenTypeKeywordKeys:        "KEYS",
	TokenTypeKeywordFieldGroups: "FIELDGROUPS",
	TokenTypeKeywordCode:        "CODE",
	TokenTypeKeywordControls:    "CONTROLS",
	TokenTypeKeywordActions:     "ACTIONS",
	TokenTypeKeywordElements:    "ELEMENTS",
	TokenTypeKeywordEvents:      "EVENTS",
	TokenTypeKeywordRequestPage: "REQUESTPAGE",
	TokenTypeKeywordRequestForm: "REQUESTFORM",
	TokenTypeKeywordDataset:     "DATASET",
	TokenTypeKeywordLabels:      "LABELS",
	TokenTypeKeywordMenuNodes:   "MENUNODES",
	TokenTypeKeywordRDLData:     "RDLDATA",
	TokenTypeKeywordWordLayout:  "WORDLAYOUT",
	TokenTypeKeywordDataItems:   "DATAITEMS",
	TokenTypeKeywordSections:    "SECTIONS",

	TokenTypeKeywordBegin:  "BEGIN",
	TokenTypeKeywordEnd:    "END",
	TokenTypeKeywordIf:     "IF",
	TokenTypeKeywordThen:   "THEN",
	TokenTypeKeywordElse:   "ELSE",
	TokenTypeKeywordCase:   "CASE",
	TokenTypeKeywordOf:     "OF",
	TokenTypeKeywordWhile:  "WHILE",
	TokenTypeKeywordDo:     "DO",
	TokenTypeKeywordRepeat: "REPEAT",
	TokenTypeKeywordUntil:  "UNTIL",
	TokenTypeKeywordFor:    "FOR",
	TokenTypeKeywordTo:     "TO",
	TokenTypeKeywordDownTo: "DOWNTO",
	TokenTypeKeywordWith:   "WITH",
	TokenTypeKeywordExit:   "EXIT",
	TokenTypeKeywordBreak:  "BREAK",

	TokenTypeKeywordProcedure:         "PROCEDURE",
	TokenTypeKeywordFunction:          "FUNCTION",
	TokenTypeKeywordLocal:             "LOCAL",
	TokenTypeKeywordVar:               "VAR",
	TokenTypeKeywordTrigger:           "TRIGGER",
	TokenTypeKeywordEvent:             "EVENT",
	TokenTypeKeywordArray:             "ARRAY",
	TokenTypeKeywordTemporary:         "TEMPORARY",
	TokenTypeKeywordWithEvents:        "WITHEVENTS",
	TokenTypeKeywordRunOnClient:       "RUNONCLIENT",
	TokenTypeKeywordInDataSet:         "INDATASET",
	TokenTypeKeywordSecurityFiltering: "SECURITYFILTERING",

	TokenTypeKeywordTrue:  "TRUE",
	TokenTypeKeywordFalse: "FALSE",

	TokenTypeKeywordDiv: "DIV",
	TokenTypeKeywordMod: "MOD",
	TokenTypeKeywordAnd: "AND",
	TokenTypeKeywordOr:  "OR",
	TokenTypeKeywordNot: "NOT",
	TokenTypeKeywordXor: "XOR",
	TokenTypeKeywordIn:  "IN",
}

func (t TokenType) String() string {
	if t < tokenTypeCount && tokenTypeNames[t] != "" {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", uint16(t))
}

// IsKeyword reports whether the token type is one of the reserved or
// contextual words of the language.
func (t TokenType) IsKeyword() bool {
	return t >= TokenTypeKeywordObject && t < tokenTypeCount
}
