// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is the number of leading bytes inspected by SniffObject.
const sniffSize = 64

// EncodingDefault is the code page used for exports that are not valid UTF-8.
// The development environment writes text exports in the OEM code page.
const EncodingDefault = "cp850"

var encodings = map[string]encoding.Encoding{
	"cp850":        charmap.CodePage850,
	"ibm850":       charmap.CodePage850,
	"oem":          charmap.CodePage850,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ansi":         charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
}

// LookupEncoding resolves a configured code page name. Names are case
// insensitive. The empty string selects EncodingDefault.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = EncodingDefault
	}
	enc, ok := encodings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return enc, nil
}

// Decode converts raw export bytes into UTF-8 text. A UTF-8 or UTF-16 byte
// order mark selects that encoding and is removed. Otherwise valid UTF-8 is
// kept as is and anything else is decoded with the legacy code page. NUL
// bytes are dropped from the result.
func Decode(raw []byte, legacy encoding.Encoding) ([]byte, error) {
	fallback := encoding.Nop.NewDecoder()
	if !utf8.Valid(raw) {
		if legacy == nil {
			legacy = charmap.CodePage850
		}
		fallback = legacy.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), raw)
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(out, []byte{0}, nil), nil
}

// SniffObject reports whether head looks like the start of a C/AL export: the
// first non-whitespace text, after any byte order mark, is "OBJECT ".
func SniffObject(head []byte) bool {
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		head = decodePrefix(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), head[2:])
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		head = decodePrefix(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), head[2:])
	default:
		head = bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})
	}
	head = bytes.TrimLeft(head, " \t\r\n\x00")
	const prefix = "OBJECT "
	if len(head) < len(prefix) {
		return false
	}
	return strings.EqualFold(string(head[:len(prefix)]), prefix)
}

func decodePrefix(enc encoding.Encoding, b []byte) []byte {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return nil
	}
	return out
}
