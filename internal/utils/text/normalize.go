package text

import "strings"

// Normalize canonicalizes a message for repeat comparison: trimmed, whitespace runs
// (any unicode space) collapsed to a single space and lower-cased. It is not meant for display.
func Normalize(content string) string {
	if content == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}
