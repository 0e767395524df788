package model

import "strings"

const DefaultLanguage = "en"

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"bn": "Bengali",
	"ta": "Tamil",
	"te": "Telugu",
	"mr": "Marathi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
	"pa": "Punjabi",
	"or": "Odia",
	"ur": "Urdu",
}

// NormalizeLanguage lower-cases a language code, defaulting to English.
func NormalizeLanguage(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return DefaultLanguage
	}
	return c
}

// LanguageName returns a display name for prompts. Unknown codes are passed
// through so the model can still interpret them.
func LanguageName(code string) string {
	c := NormalizeLanguage(code)
	if name, ok := languageNames[c]; ok {
		return name
	}
	return code
}
