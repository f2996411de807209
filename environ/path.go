package environ

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// unquoteLatin1 percent-decodes a path, mapping every decoded byte to the
// ISO-8859-1 rune of the same value. Malformed escapes are kept verbatim.
func unquoteLatin1(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteRune(charmap.ISO8859_1.DecodeByte(unhex(s[i+1])<<4 | unhex(s[i+2])))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// encodeLatin1 reverses unquoteLatin1: runes up to U+00FF become the single
// byte they stand for. Runes outside ISO-8859-1 can only have been literal
// in the path and keep their UTF-8 encoding.
func encodeLatin1(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if c, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			b = append(b, c)
			continue
		}
		b = utf8.AppendRune(b, r)
	}
	return string(b)
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
