package textproc

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// DetailOverrides carries extractor-specific values into the uniform
// extraction metadata record.
type DetailOverrides struct {
	// PageCount is the format's page count, when it has pages.
	PageCount int

	// OCRModel names the remote OCR model, when OCR ran.
	OCRModel string

	// Warnings are the extractor's diagnostics.
	Warnings []string

	// Duration is how long extraction took.
	Duration time.Duration

	// LanguageHint is the alternate Latin-script language returned when
	// accented-character frequency suggests the text is not the default
	// language. Defaults to "es".
	LanguageHint string
}

// BuildDetails assembles the uniform extraction metadata record. Word
// count is the whitespace-delimited token count of the input text as
// given, not re-normalised.
func BuildDetails(text string, method domain.ExtractionMethod, ov DetailOverrides) *domain.ExtractionDetails {
	return &domain.ExtractionDetails{
		Method:      method,
		WordCount:   len(strings.Fields(text)),
		CharCount:   utf8.RuneCountInString(text),
		PageCount:   ov.PageCount,
		Language:    DetectLanguage(text, ov.LanguageHint),
		OCRModel:    ov.OCRModel,
		Warnings:    ov.Warnings,
		Duration:    ov.Duration,
		ExtractedAt: time.Now().UTC(),
	}
}

// accentThreshold is the fraction of accented letters above which
// Latin-script text is attributed to the hinted alternate language.
const accentThreshold = 0.03

// scriptThreshold is the fraction of letters in a non-Latin script above
// which the text is attributed to that script's language.
const scriptThreshold = 0.05

// DetectLanguage is a best-effort heuristic: script-range sniffing (CJK,
// Cyrillic, Devanagari) takes priority; otherwise accented-character
// frequency distinguishes English from the hinted alternate. It always
// returns a value even when the guess is weak.
func DetectLanguage(text string, altHint string) string {
	if altHint == "" {
		altHint = "es"
	}

	var letters, cjk, kana, cyrillic, devanagari, accented int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case isAccentedLatin(r):
			accented++
		}
	}
	if letters == 0 {
		return "en"
	}

	total := float64(letters)
	switch {
	case float64(kana)/total >= scriptThreshold:
		return "ja"
	case float64(cjk)/total >= scriptThreshold:
		return "zh"
	case float64(cyrillic)/total >= scriptThreshold:
		return "ru"
	case float64(devanagari)/total >= scriptThreshold:
		return "hi"
	case float64(accented)/total >= accentThreshold:
		return altHint
	default:
		return "en"
	}
}

func isAccentedLatin(r rune) bool {
	return (r >= 0x00C0 && r <= 0x00FF && r != 0x00D7 && r != 0x00F7) ||
		(r >= 0x0100 && r <= 0x017F)
}
