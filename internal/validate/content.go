package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var bidiControls = regexp.MustCompile(`[\x{202A}-\x{202E}\x{2066}-\x{2069}]`)

type forbiddenPattern struct {
	re     *regexp.Regexp
	reason string
	spam   bool
}

// Reasons are formatted with the subject ("Message", "Embed title", ...).
var forbiddenPatterns = []forbiddenPattern{
	{
		re:     regexp.MustCompile(`(?i)(?:^|[^\w.@])@(?:everyone|here)\b`),
		reason: "%s contains a mass mention (@everyone or @here), which is not allowed.",
	},
	{
		re:     bidiControls,
		reason: "%s contains hidden text-direction control characters.",
	},
	{
		re:     regexp.MustCompile(`(?i)(?:discord\.gg|discord(?:app)?\.com/invite)/[a-z0-9-]+`),
		reason: "%s contains a server invite link.",
		spam:   true,
	},
	{
		re:     regexp.MustCompile(`(?i)free\s*nitro|nitro\s*(?:giveaway|gift|generator)|steam\s*gift|claim\s+your\s+(?:nitro|gift|prize)`),
		reason: "%s matches a known scam pattern.",
		spam:   true,
	},
	{
		re:     regexp.MustCompile(`(?i)grabify\.link|iplogger\.(?:org|com|ru|co)|2no\.co|blasze\.tk|yip\.su`),
		reason: "%s contains a link to an IP-logging service.",
		spam:   true,
	},
}

// Content checks message text. Empty text fails here; callers that allow an
// image or embed in place of text skip this check for empty content.
func (v *Validator) Content(text string) Result {
	if strings.TrimSpace(text) == "" {
		return reject(KindInput, "Message content cannot be empty.")
	}
	if n := utf8.RuneCountInString(text); n > v.opts.MaxContentLength {
		return reject(KindInput, "Message content exceeds the maximum length of %d characters (got %d).",
			v.opts.MaxContentLength, n)
	}
	return v.checkText("Message", text)
}

// checkText applies the forbidden-pattern set and the suspicion heuristics.
func (v *Validator) checkText(subject, text string) Result {
	for _, p := range forbiddenPatterns {
		if p.spam && !v.opts.BlockSpamMarkers {
			continue
		}
		if p.re.MatchString(text) {
			return reject(KindPolicy, p.reason, subject)
		}
	}
	return suspicious(subject, text)
}
