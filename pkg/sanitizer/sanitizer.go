package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

const DefaultCodePrefix = "LOT"

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reWord       = regexp.MustCompile(`[A-Za-z0-9]+`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z0-9_\-:.]+$`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, " ")
}

// NormalizeRequester canonicalizes a requester identity (an email or campus
// username) so the same person always maps to one key.
func NormalizeRequester(requester string) string {
	return Pipeline{trimAndLower, collapseWhitespace}.Apply(requester)
}

// NormalizeSpotID trims an opaque spot identifier. Identifiers carrying
// anything outside [A-Za-z0-9_-:.] normalize to "".
func NormalizeSpotID(id string) string {
	id = strings.TrimSpace(id)
	if !reIdentifier.MatchString(id) {
		return ""
	}
	return id
}

// NormalizeSpotCode upper-cases a human-readable spot code such as "blue-007".
func NormalizeSpotCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodePrefix derives the spot code prefix from a lot name: the second
// alphanumeric run, case kept. "Lot 3A-Stadium" gives "3A".
func CodePrefix(lotName string) string {
	words := reWord.FindAllString(lotName, 2)
	if len(words) < 2 {
		return DefaultCodePrefix
	}
	return words[1]
}
