package geocode

import (
	"regexp"
	"strings"
)

// maxPlaceNameLen bounds place names so folder names stay manageable.
const maxPlaceNameLen = 30

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}\-_\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// transliterations maps characters that are common in place names but
// unfriendly in folder names.
var transliterations = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
)

// CleanName normalizes a raw place name for use inside a folder name:
// transliterate umlauts, drop anything that is not a letter, digit, hyphen,
// underscore, or space, collapse whitespace to single underscores, and
// truncate. Letters outside ASCII are kept as-is.
func CleanName(name string) string {
	name = transliterations.Replace(name)
	name = disallowedChars.ReplaceAllString(name, "")
	name = whitespaceRuns.ReplaceAllString(strings.TrimSpace(name), "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	if runes := []rune(name); len(runes) > maxPlaceNameLen {
		name = string(runes[:maxPlaceNameLen])
	}
	return name
}
