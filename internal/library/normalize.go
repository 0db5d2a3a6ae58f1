package library

import "strings"

// Straight and typographic quotes are stripped so that "Beyoncé"" and
// "beyoncé" collide on the same key.
var quoteReplacer = strings.NewReplacer(
	`"`, "",
	"'", "",
	"‘", "", // left single quote
	"’", "", // right single quote
	"“", "", // left double quote
	"”", "", // right double quote
)

// NormalizeName projects an artist name onto the identity key used for
// classification and dedup: lowercased, quotes removed, whitespace
// collapsed to single spaces.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = quoteReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
