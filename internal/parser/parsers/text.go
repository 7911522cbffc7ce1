package parsers

import "strings"

// SignedToken trims cell text and reports whether it looks like an American
// price (leading '+', '-' or U+2212). The Unicode minus is normalized to '-'.
func SignedToken(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}
	s = strings.ReplaceAll(s, "−", "-")
	if s[0] != '+' && s[0] != '-' {
		return "", false
	}
	return s, true
}

// ContainsSign reports whether text has a '+' or '-' anywhere in it.
func ContainsSign(text string) bool {
	return strings.ContainsAny(text, "+-−")
}
