// Package draft holds the message being composed, the subset of it that is
// remembered between sessions, and the mapping to a webhook payload.
package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
	"github.com/SmitUplenchwar2687/Hooksend/internal/webhook"
)

// Draft is one message being composed.
type Draft struct {
	WebhookURL      string `json:"webhookUrl"`
	Username        string `json:"username,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	Content         string `json:"content,omitempty"`
	ContentImageURL string `json:"contentImageUrl,omitempty"`

	UseEmbed         bool   `json:"useEmbed,omitempty"`
	EmbedTitle       string `json:"embedTitle,omitempty"`
	EmbedDescription string `json:"embedDescription,omitempty"`
	EmbedColor       string `json:"embedColor,omitempty"`
	EmbedImageURL    string `json:"embedImageUrl,omitempty"`

	TermsAccepted bool `json:"termsAccepted"`
}

// New returns an empty draft with the default embed color.
func New() *Draft {
	return FromProfile(schema.DefaultProfile())
}

// FromProfile starts a draft from remembered identity fields.
func FromProfile(p schema.Profile) *Draft {
	d := &Draft{
		WebhookURL: p.WebhookURL,
		Username:   p.Username,
		AvatarURL:  p.AvatarURL,
		UseEmbed:   p.UseEmbed,
		EmbedColor: p.EmbedColor,
	}
	if d.EmbedColor == "" {
		d.EmbedColor = schema.DefaultEmbedColor
	}
	return d
}

// Profile returns the fields that survive across sessions.
func (d *Draft) Profile() schema.Profile {
	return schema.Profile{
		WebhookURL: d.WebhookURL,
		Username:   d.Username,
		AvatarURL:  d.AvatarURL,
		UseEmbed:   d.UseEmbed,
		EmbedColor: d.EmbedColor,
	}
}

// Request is a draft as submitted by an API client. Identity fields are
// pointers so an absent field can be told apart from one cleared on purpose.
type Request struct {
	WebhookURL      *string `json:"webhookUrl"`
	Username        *string `json:"username"`
	AvatarURL       *string `json:"avatarUrl"`
	Content         string  `json:"content"`
	ContentImageURL string  `json:"contentImageUrl"`

	UseEmbed         *bool   `json:"useEmbed"`
	EmbedTitle       string  `json:"embedTitle"`
	EmbedDescription string  `json:"embedDescription"`
	EmbedColor       *string `json:"embedColor"`
	EmbedImageURL    string  `json:"embedImageUrl"`

	TermsAccepted bool `json:"termsAccepted"`
}

// Resolve builds the draft. Absent identity fields come from p; present
// ones win, even when empty.
func (r *Request) Resolve(p schema.Profile) *Draft {
	d := FromProfile(p)
	if r.WebhookURL != nil {
		d.WebhookURL = *r.WebhookURL
	}
	if r.Username != nil {
		d.Username = *r.Username
	}
	if r.AvatarURL != nil {
		d.AvatarURL = *r.AvatarURL
	}
	if r.UseEmbed != nil {
		d.UseEmbed = *r.UseEmbed
	}
	if r.EmbedColor != nil {
		d.EmbedColor = *r.EmbedColor
	}
	d.Content = r.Content
	d.ContentImageURL = r.ContentImageURL
	d.EmbedTitle = r.EmbedTitle
	d.EmbedDescription = r.EmbedDescription
	d.EmbedImageURL = r.EmbedImageURL
	d.TermsAccepted = r.TermsAccepted
	return d
}

// ResetContent clears everything a successful send consumed, including the
// terms acknowledgement. Identity fields stay.
func (d *Draft) ResetContent() {
	d.Content = ""
	d.ContentImageURL = ""
	d.EmbedTitle = ""
	d.EmbedDescription = ""
	d.EmbedImageURL = ""
	d.TermsAccepted = false
}

// HasBody reports whether the draft has something to send: content or an
// image without an embed, or a title, description or image with one.
func (d *Draft) HasBody() bool {
	if d.UseEmbed {
		return notBlank(d.EmbedTitle) || notBlank(d.EmbedDescription) || notBlank(d.EmbedImageURL)
	}
	return notBlank(d.Content) || notBlank(d.ContentImageURL)
}

// ParseColor converts "#RRGGBB" to its integer value. An empty string
// means no color.
func ParseColor(hex string) (*int, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return nil, nil
	}
	digits, ok := strings.CutPrefix(hex, "#")
	if !ok || digits == "" {
		return nil, fmt.Errorf("color %q must look like #RRGGBB", hex)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("color %q must look like #RRGGBB", hex)
	}
	n := int(v)
	return &n, nil
}

// Embed returns the embed fields for validation. An unparseable color is
// left unset; check it with ParseColor.
func (d *Draft) Embed() validate.Embed {
	color, _ := ParseColor(d.EmbedColor)
	return validate.Embed{
		Title:       d.EmbedTitle,
		Description: d.EmbedDescription,
		Color:       color,
		ImageURL:    d.EmbedImageURL,
	}
}

// Payload builds the webhook body. Identity overrides are set only when
// non-blank. Without an embed, a content image is appended to the text on
// its own line; with one, the embed carries its own image.
func (d *Draft) Payload() webhook.Payload {
	p := webhook.Payload{Content: d.Content}
	if notBlank(d.Username) {
		p.Username = d.Username
	}
	if notBlank(d.AvatarURL) {
		p.AvatarURL = d.AvatarURL
	}

	if notBlank(d.ContentImageURL) && !d.UseEmbed {
		if notBlank(d.Content) {
			p.Content = d.Content + "\n" + d.ContentImageURL
		} else {
			p.Content = d.ContentImageURL
		}
	}

	if d.UseEmbed {
		e := d.Embed()
		embed := webhook.Embed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.ImageURL != "" {
			embed.Image = &webhook.EmbedImage{URL: e.ImageURL}
		}
		p.Embeds = []webhook.Embed{embed}
	}
	return p
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
