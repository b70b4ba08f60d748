package source

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// decodeSource normalizes raw file bytes into the UTF-8 text a buffer
// exposes: UTF-16 files (detected by BOM) are transcoded, a UTF-8 BOM is
// stripped, and CRLF line endings are collapsed to LF so byte offsets are
// stable across platforms. A file that declares UTF-16 but cannot be decoded
// is a recoverable load error, not a contract violation.
func decodeSource(raw []byte) ([]byte, error) {
	if hasUTF16BOM(raw) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return nil, fmt.Errorf("decode UTF-16: %w", err)
		}
		raw = decoded
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	return normalizeCRLF(raw), nil
}

func hasUTF16BOM(raw []byte) bool {
	return bytes.HasPrefix(raw, utf16LEBOM) || bytes.HasPrefix(raw, utf16BEBOM)
}

// normalizeCRLF replaces every \r\n with \n, leaving lone \r untouched.
func normalizeCRLF(content []byte) []byte {
	if !bytes.Contains(content, []byte{'\r', '\n'}) {
		return content
	}

	out := make([]byte, 0, len(content))
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			continue
		}
		out = append(out, content[i])
	}
	return out
}
