package validate

import "unicode/utf8"

// MaxEmbedColor is the largest RGB value an embed color can take.
const MaxEmbedColor = 0xFFFFFF

// Embed is the part of a rich embed the user controls.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       *int   `json:"color,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Empty reports whether the embed has nothing to render.
func (e Embed) Empty() bool {
	return e.Title == "" && e.Description == "" && e.ImageURL == ""
}

// Embed checks embed fields. Text fields get the same forbidden-pattern and
// suspicion checks as message content.
func (v *Validator) Embed(e Embed) Result {
	if n := utf8.RuneCountInString(e.Title); n > v.opts.MaxEmbedTitleLength {
		return reject(KindInput, "Embed title exceeds the maximum length of %d characters (got %d).",
			v.opts.MaxEmbedTitleLength, n)
	}
	if n := utf8.RuneCountInString(e.Description); n > v.opts.MaxEmbedDescriptionLength {
		return reject(KindInput, "Embed description exceeds the maximum length of %d characters (got %d).",
			v.opts.MaxEmbedDescriptionLength, n)
	}
	if e.Color != nil && (*e.Color < 0 || *e.Color > MaxEmbedColor) {
		return reject(KindInput, "Embed color must be between 0x000000 and 0xFFFFFF.")
	}
	if e.Title != "" {
		if r := v.checkText("Embed title", e.Title); !r.Valid {
			return r
		}
	}
	if e.Description != "" {
		if r := v.checkText("Embed description", e.Description); !r.Valid {
			return r
		}
	}
	return v.checkURL("Embed image URL", e.ImageURL, true)
}
