package categorize

import (
	"unicode"
)

// DetectLanguage infers the transcript language from its script when no hint
// was supplied. Kana implies Japanese; Han without kana implies Chinese;
// Hangul implies Korean; otherwise English is assumed.
func (e *engine) DetectLanguage(transcript string) string {
	var kana, han, hangul, latin int

	for _, r := range transcript {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.In(r, unicode.Han):
			han++
		case unicode.In(r, unicode.Hangul):
			hangul++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}

	switch {
	case kana > 0:
		return "ja"
	case hangul > 0:
		return "ko"
	case han > 0:
		return "zh"
	case latin > 0:
		return "en"
	}
	return "en"
}
