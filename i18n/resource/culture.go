package resource

import (
	"path"
	"strings"

	"golang.org/x/text/language"
)

// Invariant is the culture of resources that carry none. It is the root of
// every parent chain.
const Invariant = ""

// NormalizeCulture returns the canonical BCP 47 form of name. Names that do
// not parse are lower-cased so comparisons stay case-insensitive.
func NormalizeCulture(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", "-"))
	if name == "" || strings.EqualFold(name, "und") || strings.EqualFold(name, "iv") {
		return Invariant
	}
	tag, err := language.Parse(name)
	if err != nil {
		return strings.ToLower(name)
	}
	return tag.String()
}

// SameCulture compares two culture names case-insensitively after
// canonicalization.
func SameCulture(a, b string) bool {
	return NormalizeCulture(a) == NormalizeCulture(b)
}

// ParentChain returns culture followed by its ancestors, most specific
// first, always ending with Invariant. Ancestors drop one trailing subtag at
// a time, as in "zh-Hant-TW", "zh-Hant", "zh"; regional groupings such as
// "en-001" are not inserted.
func ParentChain(culture string) []string {
	c := NormalizeCulture(culture)
	chain := []string{c}
	if c == Invariant {
		return chain
	}

	parts := strings.Split(c, "-")
	for len(parts) > 1 {
		parts = parts[:len(parts)-1]
		// A singleton introduces an extension and never stands alone.
		for len(parts) > 1 && len(parts[len(parts)-1]) == 1 {
			parts = parts[:len(parts)-1]
		}
		chain = append(chain, NormalizeCulture(strings.Join(parts, "-")))
	}
	return append(chain, Invariant)
}

// CultureFromName extracts the culture suffix of an artifact name, as in
// "Texts.en-US.json". It returns Invariant when the suffix is not a
// language tag.
func CultureFromName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return Invariant
	}
	suffix := base[i+1:]
	tag, err := language.Parse(suffix)
	if err != nil || tag == language.Und {
		return Invariant
	}
	return tag.String()
}
