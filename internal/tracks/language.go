package tracks

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const undetermined = "und"

// CanonicalLanguage turns probe or user supplied codes ("eng", "pt_BR",
// "EN") into BCP 47 tags ("en", "pt-BR"). Unparsable codes are kept
// lowercased; empty input is "und".
func CanonicalLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return undetermined
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// DisplayName is the English name of a language tag, "Unknown" when none
// is known.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return "Unknown"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
