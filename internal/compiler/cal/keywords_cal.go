// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package cal

import (
	"slices"
	"strings"

	"github.com/calfront/calfront/internal/idl"
)

// keywords maps the lowercase spelling of every keyword to its token type.
// The table is never written after package initialization.
var keywords = map[string]idl.TokenType{
	"object":    idl.TokenTypeKeywordObject,
	"table":     idl.TokenTypeKeywordTable,
	"page":      idl.TokenTypeKeywordPage,
	"report":    idl.TokenTypeKeywordReport,
	"codeunit":  idl.TokenTypeKeywordCodeunit,
	"query":     idl.TokenTypeKeywordQuery,
	"xmlport":   idl.TokenTypeKeywordXMLport,
	"menusuite": idl.TokenTypeKeywordMenuSuite,
	"form":      idl.TokenTypeKeywordForm,
	"dataport":  idl.TokenTypeKeywordDataport,

	"properties":  idl.TokenTypeKeywordProperties,
	"fields":      idl.TokenTypeKeywordFields,
	"keys":        idl.TokenTypeKeywordKeys,
	"fieldgroups": idl.TokenTypeKeywordFieldGroups,
	"code":        idl.TokenTypeKeywordCode,
	"controls":    idl.TokenTypeKeywordControls,
	"actions":     idl.TokenTypeKeywordActions,
	"elements":    idl.TokenTypeKeywordElements,
	"events":      idl.TokenTypeKeywordEvents,
	"requestpage": idl.TokenTypeKeywordRequestPage,
	"requestform": idl.TokenTypeKeywordRequestForm,
	"dataset":     idl.TokenTypeKeywordDataset,
	"labels":      idl.TokenTypeKeywordLabels,
	"menunodes":   idl.TokenTypeKeywordMenuNodes,
	"rdldata":     idl.TokenTypeKeywordRDLData,
	"wordlayout":  idl.TokenTypeKeywordWordLayout,
	"dataitems":   idl.TokenTypeKeywordDataItems,
	"sections":    idl.TokenTypeKeywordSections,

	"begin":  idl.TokenTypeKeywordBegin,
	"end":    idl.TokenTypeKeywordEnd,
	"if":     idl.TokenTypeKeywordIf,
	"then":   idl.TokenTypeKeywordThen,
	"else":   idl.TokenTypeKeywordElse,
	"case":   idl.TokenTypeKeywordCase,
	"of":     idl.TokenTypeKeywordOf,
	"while":  idl.TokenTypeKeywordWhile,
	"do":     idl.TokenTypeKeywordDo,
	"repeat": idl.TokenTypeKeywordRepeat,
	"until":  idl.TokenTypeKeywordUntil,
	"for":    idl.TokenTypeKeywordFor,
	"to":     idl.TokenTypeKeywordTo,
	"downto": idl.TokenTypeKeywordDownTo,
	"with":   idl.TokenTypeKeywordWith,
	"exit":   idl.TokenTypeKeywordExit,
	"break":  idl.TokenTypeKeywordBreak,

	"procedure":         idl.TokenTypeKeywordProcedure,
	"function":          idl.TokenTypeKeywordFunction,
	"local":             idl.TokenTypeKeywordLocal,
	"var":               idl.TokenTypeKeywordVar,
	"trigger":           idl.TokenTypeKeywordTrigger,
	"event":             idl.TokenTypeKeywordEvent,
	"array":             idl.TokenTypeKeywordArray,
	"temporary":         idl.TokenTypeKeywordTemporary,
	"withevents":        idl.TokenTypeKeywordWithEvents,
	"runonclient":       idl.TokenTypeKeywordRunOnClient,
	"indataset":         idl.TokenTypeKeywordInDataSet,
	"securityfiltering": idl.TokenTypeKeywordSecurityFiltering,

	"true":  idl.TokenTypeKeywordTrue,
	"false": idl.TokenTypeKeywordFalse,

	"div": idl.TokenTypeKeywordDiv,
	"mod": idl.TokenTypeKeywordMod,
	"and": idl.TokenTypeKeywordAnd,
	"or":  idl.TokenTypeKeywordOr,
	"not": idl.TokenTypeKeywordNot,
	"xor": idl.TokenTypeKeywordXor,
	"in":  idl.TokenTypeKeywordIn,
}

// allowedAsIdentifier lists the keywords that may also name a variable,
// parameter or procedure. Object types and section names are common words in
// business code (Page, Report, Code, Fields) so they are only keywords where
// the object structure expects them.
var allowedAsIdentifier = map[idl.TokenType]bool{
	idl.TokenTypeKeywordObject:    true,
	idl.TokenTypeKeywordTable:     true,
	idl.TokenTypeKeywordPage:      true,
	idl.TokenTypeKeywordReport:    true,
	idl.TokenTypeKeywordCodeunit:  true,
	idl.TokenTypeKeywordQuery:     true,
	idl.TokenTypeKeywordXMLport:   true,
	idl.TokenTypeKeywordMenuSuite: true,
	idl.TokenTypeKeywordForm:      true,
	idl.TokenTypeKeywordDataport:  true,

	idl.TokenTypeKeywordProperties:  true,
	idl.TokenTypeKeywordFields:      true,
	idl.TokenTypeKeywordKeys:        true,
	idl.TokenTypeKeywordFieldGroups: true,
	idl.TokenTypeKeywordCode:        true,
	idl.TokenTypeKeywordControls:    true,
	idl.TokenTypeKeywordActions:     true,
	idl.TokenTypeKeywordElements:    true,
	idl.TokenTypeKeywordEvents:      true,
	idl.TokenTypeKeywordRequestPage: true,
	idl.TokenTypeKeywordRequestForm: true,
	idl.TokenTypeKeywordDataset:     true,
	idl.TokenTypeKeywordLabels:      true,
	idl.TokenTypeKeywordMenuNodes:   true,
	idl.TokenTypeKeywordRDLData:     true,
	idl.TokenTypeKeywordWordLayout:  true,
	idl.TokenTypeKeywordDataItems:   true,
	idl.TokenTypeKeywordSections:    true,

	idl.TokenTypeKeywordTemporary:         true,
	idl.TokenTypeKeywordWithEvents:        true,
	idl.TokenTypeKeywordRunOnClient:       true,
	idl.TokenTypeKeywordInDataSet:         true,
	idl.TokenTypeKeywordSecurityFiltering: true,
}

// sectionKeywords are the keywords that open a section of an object body.
var sectionKeywords = map[idl.TokenType]bool{
	idl.TokenTypeKeywordProperties:  true,
	idl.TokenTypeKeywordFields:      true,
	idl.TokenTypeKeywordKeys:        true,
	idl.TokenTypeKeywordFieldGroups: true,
	idl.TokenTypeKeywordCode:        true,
	idl.TokenTypeKeywordControls:    true,
	idl.TokenTypeKeywordActions:     true,
	idl.TokenTypeKeywordElements:    true,
	idl.TokenTypeKeywordEvents:      true,
	idl.TokenTypeKeywordRequestPage: true,
	idl.TokenTypeKeywordRequestForm: true,
	idl.TokenTypeKeywordDataset:     true,
	idl.TokenTypeKeywordLabels:      true,
	idl.TokenTypeKeywordMenuNodes:   true,
	idl.TokenTypeKeywordRDLData:     true,
	idl.TokenTypeKeywordWordLayout:  true,
	idl.TokenTypeKeywordDataItems:   true,
	idl.TokenTypeKeywordSections:    true,
}

// LookupKeyword resolves a word to its keyword token type. The comparison is
// an ASCII case fold.
func LookupKeyword(word string) (idl.TokenType, bool) {
	t, ok := keywords[strings.ToLower(word)]
	return t, ok
}

// IsAllowedAsIdentifier reports whether a token of the given type may stand
// where a name is declared or referenced. Plain identifiers are always allowed.
func IsAllowedAsIdentifier(t idl.TokenType) bool {
	return t == idl.TokenTypeIdentifier || allowedAsIdentifier[t]
}

// IsReserved reports whether the token type is a keyword that can never be
// used as a name.
func IsReserved(t idl.TokenType) bool {
	return t.IsKeyword() && !allowedAsIdentifier[t]
}

// IsSectionKeyword reports whether the token type opens an object section.
func IsSectionKeyword(t idl.TokenType) bool {
	return sectionKeywords[t]
}

// AllowedKeywords returns the sorted lowercase spelling of every keyword in
// the allowed-as-identifier set.
func AllowedKeywords() []string {
	out := make([]string, 0, len(allowedAsIdentifier))
	for word, t := range keywords {
		if allowedAsIdentifier[t] {
			out = append(out, word)
		}
	}
	slices.Sort(out)
	return out
}
