package cleanup

// languageNames maps ISO 639-1 codes emitted by the recognizer to the
// names used inside prompt templates.
var languageNames = map[string]string{
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
}

// LanguageName resolves a recognizer language code for prompt
// interpolation. An empty code yields a neutral instruction and unknown
// codes pass through verbatim.
func LanguageName(code string) string {
	if code == "" {
		return "the same language"
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
