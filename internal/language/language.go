package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// aliases covers spelled-out names and ISO 639-2/B codes that speech engines
// and users commonly pass as hints.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"fre":        "fr",
	"ger":        "de",
	"chi":        "zh",
	"dut":        "nl",
}

// Normalize canonicalizes a language hint to its base ISO 639-1 code (ISO
// 639-3 when no two-letter code exists). An empty hint or "und" means
// auto-detect and returns "". Unparseable hints are an error.
func Normalize(hint string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(hint))
	if code == "" || code == "und" || code == "auto" {
		return "", nil
	}
	if mapped, ok := aliases[code]; ok {
		return mapped, nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", hint, err)
	}
	base, _ := tag.Base()
	if base.String() == "und" {
		return "", nil
	}
	return base.String(), nil
}

// ToISO2 converts any recognized language code, tag or name to its base code.
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return ""
	}
	return normalized
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	normalized, err := Normalize(code)
	if err != nil || normalized == "" {
		return "und"
	}
	base, err := language.ParseBase(normalized)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name for a language code. Returns "Unknown"
// for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	normalized, err := Normalize(code)
	if err != nil || normalized == "" {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Languages().Name(language.Make(normalized)); name != "" {
		return name
	}
	return strings.ToUpper(normalized)
}
