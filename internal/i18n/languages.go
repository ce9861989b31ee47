package i18n

import "strings"

var languageNames = map[string]string{
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"ru": "Russian",
	"uk": "Ukrainian",
}

func GetLanguageName(code string) string {
	normalized := strings.ToLower(code)
	if name, ok := languageNames[normalized]; ok {
		return name
	}
	return code
}

// IsSupported reports whether texts can be rendered in the given language.
func IsSupported(code string) bool {
	_, ok := languageNames[strings.ToLower(code)]
	return ok
}
