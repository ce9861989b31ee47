package text

import "regexp"

var linkPattern = regexp.MustCompile(`(?i)(https?://\S+|t\.me/\S+|www\.\S+)`)

// HasLink reports whether content carries an http(s) URL, a t.me reference or a www. host
// anywhere in it.
func HasLink(content string) bool {
	if content == "" {
		return false
	}
	return linkPattern.MatchString(content)
}
