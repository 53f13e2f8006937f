package recorder

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
)

// Attempt is one captured send attempt. Only the identity fields that are
// remembered anyway are kept as is. Message text and image links are reduced
// to their shape, and the verdict on them is kept instead.
type Attempt struct {
	Timestamp time.Time      `json:"timestamp"`
	Profile   schema.Profile `json:"profile"`
	Body      Body           `json:"body"`
	Rejection *Rejection     `json:"rejection,omitempty"`
	Outcome   sender.Status  `json:"outcome,omitempty"`
	// StatusCode is the webhook's response code; zero when nothing was delivered.
	StatusCode     int  `json:"status_code,omitempty"`
	TransportError bool `json:"transport_error,omitempty"`
}

// Body is the shape of the message: lengths in characters and which images
// were attached. Blank text has length zero.
type Body struct {
	ContentLength          int  `json:"content_length,omitempty"`
	ContentImage           bool `json:"content_image,omitempty"`
	EmbedTitleLength       int  `json:"embed_title_length,omitempty"`
	EmbedDescriptionLength int  `json:"embed_description_length,omitempty"`
	EmbedImage             bool `json:"embed_image,omitempty"`
	TermsAccepted          bool `json:"terms_accepted,omitempty"`
}

// Rejection is the validation verdict the attempt received.
type Rejection struct {
	Field  string        `json:"field"`
	Kind   validate.Kind `json:"kind"`
	Reason string        `json:"reason"`
}

// Fields whose values are not recorded. A rejection on one of them can only
// be reproduced from the recorded verdict.
var unrecordedFields = map[string]struct{}{
	"content":         {},
	"contentImageUrl": {},
	"embed":           {},
}

// Opaque reports whether the rejection concerns a field whose value was not
// recorded.
func (r *Rejection) Opaque() bool {
	if r == nil {
		return false
	}
	_, ok := unrecordedFields[r.Field]
	return ok
}

// NewAttempt captures d as submitted at ts together with its outcome. The
// webhook token is redacted.
func NewAttempt(ts time.Time, d draft.Draft, out sender.Outcome) Attempt {
	p := d.Profile()
	p.WebhookURL = RedactWebhook(p.WebhookURL)

	a := Attempt{
		Timestamp: ts,
		Profile:   p,
		Body: Body{
			ContentLength:          textLength(d.Content),
			ContentImage:           strings.TrimSpace(d.ContentImageURL) != "",
			EmbedTitleLength:       textLength(d.EmbedTitle),
			EmbedDescriptionLength: textLength(d.EmbedDescription),
			EmbedImage:             strings.TrimSpace(d.EmbedImageURL) != "",
			TermsAccepted:          d.TermsAccepted,
		},
		Outcome: out.Status,
	}
	if out.Status == sender.StatusRejected {
		a.Rejection = &Rejection{Field: out.Field, Kind: out.Kind, Reason: out.Message}
	}
	if out.Delivery != nil {
		a.StatusCode = out.Delivery.StatusCode
		a.TransportError = out.Delivery.StatusCode == 0 && !out.Delivery.Success
	}
	return a
}

// PlaceholderImage stands in for a recorded image link.
const PlaceholderImage = "https://cdn.hooksend.example/placeholder.png"

const filler = "lorem ipsum dolor sit amet consectetur adipiscing elit "

// Draft rebuilds a stand-in draft with the recorded identity and the same
// shape. Text is neutral filler of the recorded length.
func (a Attempt) Draft() draft.Draft {
	d := *draft.FromProfile(a.Profile)
	d.Content = fill(a.Body.ContentLength)
	d.EmbedTitle = fill(a.Body.EmbedTitleLength)
	d.EmbedDescription = fill(a.Body.EmbedDescriptionLength)
	if a.Body.ContentImage {
		d.ContentImageURL = PlaceholderImage
	}
	if a.Body.EmbedImage {
		d.EmbedImageURL = PlaceholderImage
	}
	d.TermsAccepted = a.Body.TermsAccepted
	return d
}

func textLength(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return utf8.RuneCountInString(s)
}

func fill(n int) string {
	if n <= 0 {
		return ""
	}
	s := strings.Repeat(filler, n/len(filler)+1)[:n]
	if s[n-1] == ' ' {
		s = s[:n-1] + "."
	}
	return s
}

var webhookToken = regexp.MustCompile(`(/api/webhooks/\d+/)[\w-]+`)

// RedactWebhook replaces the secret token of a webhook URL. The result still
// passes webhook URL validation so recordings replay unchanged.
func RedactWebhook(url string) string {
	return webhookToken.ReplaceAllString(url, "${1}redacted")
}
