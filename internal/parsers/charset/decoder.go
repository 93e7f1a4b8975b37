// Package charset normalizes offer exports to UTF-8. Spreadsheet tools on Windows
// save JSON and CSV as Windows-1252 or with a byte order mark, which breaks port
// names such as "Roatán" and "Curaçao".
package charset

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names a detected text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingWindows1252 Encoding = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding looks at the byte order mark first, then falls back to
// Windows-1252 for anything that is not valid UTF-8.
func DetectEncoding(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE
	case utf8.Valid(data):
		return EncodingUTF8
	default:
		return EncodingWindows1252
	}
}

// ToUTF8 returns data as UTF-8 without a byte order mark
func ToUTF8(data []byte) ([]byte, error) {
	var dec encoding.Encoding
	switch DetectEncoding(data) {
	case EncodingUTF8:
		return bytes.TrimPrefix(data, bomUTF8), nil
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case EncodingUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	default:
		dec = charmap.Windows1252
	}
	return dec.NewDecoder().Bytes(data)
}
