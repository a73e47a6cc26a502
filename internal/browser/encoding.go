package browser

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// EncodingBinary marks content that no candidate encoding could decode.
const EncodingBinary = "binary"

type candidate struct {
	name string
	enc  encoding.Encoding
}

// Tried in order after UTF-8.
var fallbackEncodings = []candidate{
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
}

// decodeText converts raw file bytes to a string. It reports the encoding
// that worked, or ok=false when the bytes do not look like text in any of
// the candidate encodings.
func decodeText(data []byte) (text, enc string, ok bool) {
	if utf8.Valid(data) && plausibleText(string(data)) {
		return string(data), "utf-8", true
	}
	for _, c := range fallbackEncodings {
		out, err := c.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if s := string(out); plausibleText(s) {
			return s, c.name, true
		}
	}
	return "", EncodingBinary, false
}

// plausibleText rejects decodings containing NUL or other C0 control
// characters that do not occur in ordinary text files.
func plausibleText(s string) bool {
	for _, r := range s {
		if r < 0x20 {
			switch r {
			case '\t', '\n', '\r', '\f', '\v', 0x1b:
				continue
			}
			return false
		}
		if r == utf8.RuneError {
			return false
		}
	}
	return true
}
