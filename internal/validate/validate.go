// Package validate checks message drafts before they leave the machine:
// content, username, avatar and image URLs, embedded image data and embeds.
//
// Every check is a pure, total function. Checks never panic or return errors;
// a failure is a Result carrying a reason meant to be shown to the user as is.
package validate

import (
	"fmt"
	"regexp"
)

// Kind classifies why a check failed.
type Kind string

const (
	// KindInput is a length or format problem the user can simply correct.
	KindInput Kind = "input"
	// KindPolicy is a forbidden pattern, suspicion heuristic or blocked
	// destination: content that looks like abuse rather than a mistake.
	KindPolicy Kind = "policy"
)

// Result is the outcome of a check. Reason and Kind are set only when Valid
// is false.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
}

// OK is the passing result.
var OK = Result{Valid: true}

func reject(kind Kind, format string, args ...any) Result {
	return Result{
		Valid:  false,
		Reason: fmt.Sprintf(format, args...),
		Kind:   kind,
	}
}

// Limits and defaults.
const (
	DefaultMaxContentLength          = 2000
	DefaultMaxUsernameLength         = 80
	DefaultMaxEmbedTitleLength       = 256
	DefaultMaxEmbedDescriptionLength = 4096
	DefaultMaxImageBytes             = 8 * 1024 * 1024

	// DefaultWebhookPattern matches the platform's webhook endpoints,
	// including its canary and ptb hosts.
	DefaultWebhookPattern = `^https://(?:(?:canary|ptb)\.)?discord(?:app)?\.com/api/webhooks/\d+/[\w-]+$`
)

// Options tunes a Validator. Zero-valued limits fall back to the defaults.
type Options struct {
	MaxContentLength          int
	MaxUsernameLength         int
	MaxEmbedTitleLength       int
	MaxEmbedDescriptionLength int
	MaxImageBytes             int64

	// BlockSpamMarkers enables the platform-specific spam patterns
	// (invite links, gift lures, IP-logger links) on top of the mass-mention
	// and text-direction checks that always apply.
	BlockSpamMarkers bool

	// WebhookPattern is the regular expression webhook URLs must match.
	WebhookPattern string

	// BlockedTerms replaces the impersonation term list when non-empty.
	BlockedTerms []string
}

// DefaultOptions returns the canonical rule set.
func DefaultOptions() Options {
	return Options{
		MaxContentLength:          DefaultMaxContentLength,
		MaxUsernameLength:         DefaultMaxUsernameLength,
		MaxEmbedTitleLength:       DefaultMaxEmbedTitleLength,
		MaxEmbedDescriptionLength: DefaultMaxEmbedDescriptionLength,
		MaxImageBytes:             DefaultMaxImageBytes,
		BlockSpamMarkers:          true,
		WebhookPattern:            DefaultWebhookPattern,
	}
}

// Validator applies one configured rule set. It holds no mutable state and
// is safe for concurrent use.
type Validator struct {
	opts    Options
	webhook *regexp.Regexp
	terms   []string
}

// New builds a Validator, filling unset limits from DefaultOptions.
func New(opts Options) (*Validator, error) {
	def := DefaultOptions()
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = def.MaxContentLength
	}
	if opts.MaxUsernameLength <= 0 {
		opts.MaxUsernameLength = def.MaxUsernameLength
	}
	if opts.MaxEmbedTitleLength <= 0 {
		opts.MaxEmbedTitleLength = def.MaxEmbedTitleLength
	}
	if opts.MaxEmbedDescriptionLength <= 0 {
		opts.MaxEmbedDescriptionLength = def.MaxEmbedDescriptionLength
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = def.MaxImageBytes
	}
	if opts.WebhookPattern == "" {
		opts.WebhookPattern = def.WebhookPattern
	}

	re, err := regexp.Compile(opts.WebhookPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling webhook pattern: %w", err)
	}

	terms := defaultBlockedTerms
	if len(opts.BlockedTerms) > 0 {
		terms = opts.BlockedTerms
	}
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		if n := normalize(term); n != "" {
			normalized = append(normalized, n)
		}
	}

	return &Validator{
		opts:    opts,
		webhook: re,
		terms:   normalized,
	}, nil
}

// MustNew is New that panics on an invalid webhook pattern.
func MustNew(opts Options) *Validator {
	v, err := New(opts)
	if err != nil {
		panic(err)
	}
	return v
}

// Options returns the effective options.
func (v *Validator) Options() Options {
	return v.opts
}

var defaultValidator = MustNew(DefaultOptions())

// Default returns the validator with the canonical rule set.
func Default() *Validator {
	return defaultValidator
}

// Content checks message text with the default rules.
func Content(text string) Result { return defaultValidator.Content(text) }

// Username checks a sender name override with the default rules.
func Username(name string) Result { return defaultValidator.Username(name) }

// AvatarURL checks an avatar override with the default rules.
func AvatarURL(raw string) Result { return defaultValidator.AvatarURL(raw) }

// ImageURL checks an image link with the default rules.
func ImageURL(raw string) Result { return defaultValidator.ImageURL(raw) }

// DataImage checks base64 image data with the default rules.
func DataImage(uri string) Result { return defaultValidator.DataImage(uri) }

// EmbedFields checks an embed with the default rules.
func EmbedFields(e Embed) Result { return defaultValidator.Embed(e) }

// Suspicious runs the spam heuristics on text.
func Suspicious(text string) Result { return suspicious("Message", text) }

// WebhookURL checks a webhook URL with the default pattern.
func WebhookURL(raw string) Result { return defaultValidator.WebhookURL(raw) }
