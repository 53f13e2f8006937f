package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultBlockedTerms are names reserved for the platform and its staff.
var defaultBlockedTerms = []string{
	"discord",
	"clyde",
	"admin",
	"moderator",
	"staff",
	"system",
	"official",
	"support team",
	"trust & safety",
	"trust and safety",
	"safety team",
}

// newNormalizer folds text for impersonation matching. A transform chain
// keeps internal state, so each call gets its own.
func newNormalizer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.Cf)),
		runes.Map(unicode.ToLower),
		norm.NFKC,
	)
}

// normalize folds accents, fullwidth forms and case and strips zero-width
// characters, so "ＤÍSCORD" and "discord" compare equal. Whitespace runs
// collapse to one space.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	out, _, err := transform.String(newNormalizer(), s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Username checks a sender name override. An empty name means "no override"
// and is valid.
func (v *Validator) Username(name string) Result {
	if strings.TrimSpace(name) == "" {
		return OK
	}
	if n := utf8.RuneCountInString(name); n > v.opts.MaxUsernameLength {
		return reject(KindInput, "Username exceeds the maximum length of %d characters (got %d).",
			v.opts.MaxUsernameLength, n)
	}

	folded := normalize(name)
	for _, term := range v.terms {
		if strings.Contains(folded, term) {
			return reject(KindPolicy, "Username cannot contain %q.", term)
		}
	}

	if bidiControls.MatchString(name) {
		return reject(KindPolicy, "Username contains hidden text-direction control characters.")
	}
	return OK
}
