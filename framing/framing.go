// Package framing recovers header values from raw, unparsed text.
//
// Some hosts only hand over the response headers as one blob of text. The
// helpers here find the values the cross process engine needs in such blobs
// without trusting their framing.
package framing

import (
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/reddit/crossprocess.go/obfuscate"
)

// ExtractEncodedValue finds headerName in blob, ignoring ASCII case, and
// returns the run of base64 characters following it.
//
// Colons, spaces and tabs between the name and the value are skipped, the
// scan never crosses a line break. It returns false when headerName is not
// found or no base64 character follows it on the same line.
func ExtractEncodedValue(blob, headerName string) (string, bool) {
	if headerName == "" {
		return "", false
	}
	i := indexFold(blob, headerName)
	if i < 0 {
		return "", false
	}
	rest := blob[i+len(headerName):]

	start := 0
	for start < len(rest) && isSeparator(rest[start]) {
		start++
	}
	end := start
	for end < len(rest) && obfuscate.IsValidBase64Char(rest[end]) {
		end++
	}
	if end == start {
		return "", false
	}
	return rest[start:end], true
}

func isSeparator(b byte) bool {
	return b == ':' || b == ' ' || b == '\t'
}

// indexFold is strings.Index with ASCII case folding. Unlike lowering both
// strings first, byte offsets into s stay valid.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if asciiEqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// ParseContentType returns the "type/subtype" part of a Content-Type value.
//
// s may carry a leading "Content-Type:" (or any "name:") prefix and trailing
// parameters, both are dropped along with surrounding whitespace. An empty
// media type returns ("", true). It returns false when the type or subtype
// is empty or not a valid token.
func ParseContentType(s string) (string, bool) {
	if i := strings.IndexAny(s, ":/;"); i >= 0 && s[i] == ':' {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}

	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return "", false
	}
	if !isToken(s[:slash]) || !isToken(s[slash+1:]) {
		return "", false
	}
	return s, true
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}
