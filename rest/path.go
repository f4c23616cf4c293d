package rest

import (
	"regexp"
	"strings"
)

const paramPattern = `[a-zA-Z][a-zA-Z0-9_-]*`

var (
	paramURLRegex  = regexp.MustCompile(`\{(` + paramPattern + `)\}`)
	paramNameRegex = regexp.MustCompile(`^` + paramPattern + `$`)

	// pathTraversal matches a relative URL with a "." or ".." segment.
	pathTraversal = regexp.MustCompile(`^(.*/)?(\.|%2e|%2E){1,2}(/.*)?$`)
)

// pathParams returns the distinct placeholder names of path in order of
// first appearance.
func pathParams(path string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range paramURLRegex.FindAllStringSubmatch(path, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// splitQuery returns the query part of a relative URL, or "".
func splitQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 && i < len(path)-1 {
		return path[i+1:]
	}
	return ""
}

const (
	hexDigits = "0123456789ABCDEF"
	// pathAlwaysEncode holds characters that are never valid in a path segment.
	pathAlwaysEncode = " \"<>^`{}|\\?#"
	// queryReencode holds characters re-encoded in an already encoded query
	// component.
	queryReencode = " \"'<>#&="
)

// canonicalizeForPath percent-encodes value for a path segment. Unless the
// value is already encoded, '/' and '%' are encoded as well.
func canonicalizeForPath(value string, alreadyEncoded bool) string {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < 0x20 || c >= 0x7f || strings.IndexByte(pathAlwaysEncode, c) >= 0 ||
			(!alreadyEncoded && (c == '/' || c == '%')) {
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// canonicalizeForQuery percent-encodes s for a query component. An already
// encoded value keeps its valid %XX sequences; anything invalid in a query
// is still encoded.
func canonicalizeForQuery(s string, alreadyEncoded bool) string {
	if !alreadyEncoded {
		return queryEscape(s)
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			sb.WriteByte(c)
		case c == '%', c < 0x20, c >= 0x7f, strings.IndexByte(queryReencode, c) >= 0:
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
