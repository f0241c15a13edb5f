// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package exc

const (
	CodeUnknownFatal                  = "C0000"
	CodeFileNotFound                  = "C0001"
	CodeUnsuportedFileSystemOperation = "C0002"
	CodePermissionDenied              = "C0003"
	CodeUnsupportedFileFormat         = "C0004"
	CodeUnexpectedEOF                 = "C0005"
	CodeInvalidNumber                 = "C0006"
	CodeUnexpectedToken               = "C0007"
	CodeInvalidCharacter              = "C0008"
	CodeUnterminatedString            = "C0009"
	CodeUnterminatedComment           = "C0010"
	CodeReservedIdentifier            = "C0011"
	CodeMissingObject                 = "C0012"
	CodeTrailingContent               = "C0013"
	CodeDuplicateSymbol               = "C0014"
	CodeEncoding                      = "C0015"
	CodeStaleUpdate                   = "C0016"
)

const (
	CodeEOF = "_EOF_"
)

var (
	// Everything the lexer and parser report describes a malformed document,
	// not a broken compiler, and never stops a batch.
	defaultNonFatal = map[string]bool{
		CodeUnexpectedEOF:       true,
		CodeInvalidNumber:       true,
		CodeUnexpectedToken:     true,
		CodeInvalidCharacter:    true,
		CodeUnterminatedString:  true,
		CodeUnterminatedComment: true,
		CodeReservedIdentifier:  true,
		CodeMissingObject:       true,
		CodeTrailingContent:     true,
		CodeDuplicateSymbol:     true,
		CodeStaleUpdate:         true,
	}
)

// IsNonFatal reports whether the code is in the default non-fatal set.
func IsNonFatal(code string) bool {
	return defaultNonFatal[code]
}
