package search

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// LocaleHints checks the country and language codes against the region and
// language tables in x/text. Unknown codes are still sent upstream; the hints
// only tell the caller that the engine will probably ignore them.
func LocaleHints(countryCode, languageCode string) []string {
	var hints []string

	if c := strings.TrimSpace(countryCode); c != "" {
		if _, err := language.ParseRegion(c); err != nil {
			hints = append(hints, fmt.Sprintf("unrecognized country code %q", c))
		}
	}

	if l := strings.TrimSpace(languageCode); l != "" {
		if _, err := language.Parse(l); err != nil {
			hints = append(hints, fmt.Sprintf("unrecognized language code %q", l))
		}
	}

	return hints
}
