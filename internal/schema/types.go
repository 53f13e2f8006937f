package schema

// EventType classifies a security-log entry.
type EventType string

const (
	EventValidationFailure EventType = "validation_failure"
	EventRateLimit         EventType = "rate_limit"
	EventBlocked           EventType = "blocked"
	EventSuspicious        EventType = "suspicious"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventValidationFailure, EventRateLimit, EventBlocked, EventSuspicious:
		return true
	}
	return false
}

// LogEntry is one persisted security event.
type LogEntry struct {
	Timestamp string            `json:"timestamp"` // ISO-8601
	Type      EventType         `json:"type"`
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DefaultEmbedColor is the platform's brand blue.
const DefaultEmbedColor = "#5865F2"

// Profile is the subset of a message draft that survives across sessions.
// Message text, image URLs and embed title/description are never stored.
type Profile struct {
	WebhookURL string `json:"webhookUrl"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatarUrl"`
	UseEmbed   bool   `json:"useEmbed"`
	EmbedColor string `json:"embedColor"`
}

// DefaultProfile returns the profile used before anything is saved.
func DefaultProfile() Profile {
	return Profile{
		EmbedColor: DefaultEmbedColor,
	}
}
