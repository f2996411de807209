package environ

import (
	"net/url"
	"strings"
)

// Characters kept as they are in load balancer query strings. Escaping them
// would double-encode parameters the load balancer passed through raw.
const reservedURIChars = "!#$&'()*+,/:;=?@[]%"

// joinQuery renders params as a query string, keys in sorted order and
// values in the order given.
func joinQuery(params map[string][]string, escape func(string) string) string {
	var b strings.Builder
	for _, k := range sortedKeys(params) {
		for _, v := range params[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(k))
			b.WriteByte('=')
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

// escapeQuery percent-encodes everything but unreserved characters. Spaces
// become %20 rather than +.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// escapeRawQuery leaves unreserved and reserved characters untouched and
// percent-encodes only bytes that may not appear in a URI at all.
func escapeRawQuery(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !rawSafe(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	const hex = "0123456789ABCDEF"
	b := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if rawSafe(c) {
			b = append(b, c)
			continue
		}
		b = append(b, '%', hex[c>>4], hex[c&15])
	}
	return string(b)
}

func rawSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return strings.IndexByte(reservedURIChars, c) >= 0
}
