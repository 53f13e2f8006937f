package recorder

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
	"github.com/SmitUplenchwar2687/Hooksend/internal/webhook"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleAttempt(i int) Attempt {
	d := draft.New()
	d.WebhookURL = "https://discord.com/api/webhooks/1/secret"
	d.Content = "message"
	d.TermsAccepted = true
	return NewAttempt(epoch.Add(time.Duration(i)*time.Second), *d,
		sender.Outcome{Status: sender.StatusSent, Delivery: &webhook.Result{Success: true, StatusCode: 204}})
}

func TestRecorder_Record(t *testing.T) {
	rec := New(nil)
	for i := 0; i < 3; i++ {
		if err := rec.Record(sampleAttempt(i)); err != nil {
			t.Fatal(err)
		}
	}
	if rec.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rec.Len())
	}
	attempts := rec.Attempts()
	if !attempts[2].Timestamp.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("third timestamp = %v", attempts[2].Timestamp)
	}
}

func TestRecorder_Streams(t *testing.T) {
	var buf bytes.Buffer
	rec := New(&buf)
	rec.Record(sampleAttempt(0))
	rec.Record(sampleAttempt(1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("streamed %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"outcome":"sent"`) {
		t.Errorf("line = %s, want outcome field", lines[0])
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Record(sampleAttempt(i))
		}(i)
	}
	wg.Wait()
	if rec.Len() != 50 {
		t.Errorf("Len() = %d, want 50", rec.Len())
	}
}

func TestRecorder_ExportAndLoad(t *testing.T) {
	rec := New(nil)
	rec.Record(sampleAttempt(0))
	rec.Record(sampleAttempt(1))

	path := filepath.Join(t.TempDir(), "attempts.json")
	if err := rec.ExportFile(path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	loaded, err := LoadJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d attempts, want 2", len(loaded))
	}
	if loaded[1].Body.ContentLength != 7 || loaded[1].StatusCode != 204 {
		t.Errorf("loaded[1] = %+v", loaded[1])
	}
}

func TestRecorder_ExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := New(nil).ExportJSON(&buf); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty export = %q, want []", buf.String())
	}
}

func TestLoadJSON_Invalid(t *testing.T) {
	if _, err := LoadJSON(strings.NewReader("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestRedactWebhook(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://discord.com/api/webhooks/123/abc-DEF_ghi", "https://discord.com/api/webhooks/123/redacted"},
		{"https://ptb.discord.com/api/webhooks/9/tok", "https://ptb.discord.com/api/webhooks/9/redacted"},
		{"https://example.com/hook", "https://example.com/hook"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RedactWebhook(tt.in); got != tt.want {
			t.Errorf("RedactWebhook(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewAttempt(t *testing.T) {
	d := draft.New()
	d.WebhookURL = "https://discord.com/api/webhooks/1/secret"
	d.Content = "hi"

	a := NewAttempt(epoch, *d, sender.Outcome{Status: sender.StatusSent, Delivery: &webhook.Result{Success: true, StatusCode: 204}})
	if a.Profile.WebhookURL != "https://discord.com/api/webhooks/1/redacted" {
		t.Errorf("webhook = %q, want redacted", a.Profile.WebhookURL)
	}
	if d.WebhookURL != "https://discord.com/api/webhooks/1/secret" {
		t.Error("caller's draft must not be modified")
	}
	if a.StatusCode != 204 || a.TransportError {
		t.Errorf("attempt = %+v", a)
	}

	failed := NewAttempt(epoch, *d, sender.Outcome{Status: sender.StatusFailed, Delivery: &webhook.Result{Message: webhook.MessageTransportFail}})
	if !failed.TransportError {
		t.Error("delivery without a status code should be a transport error")
	}

	rejected := NewAttempt(epoch, *d, sender.Outcome{
		Status:  sender.StatusRejected,
		Field:   "content",
		Kind:    validate.KindPolicy,
		Message: "Message matches a known scam pattern.",
	})
	if rejected.StatusCode != 0 || rejected.TransportError {
		t.Errorf("rejected attempt = %+v", rejected)
	}
	want := Rejection{Field: "content", Kind: validate.KindPolicy, Reason: "Message matches a known scam pattern."}
	if rejected.Rejection == nil || *rejected.Rejection != want {
		t.Errorf("rejection = %+v, want %+v", rejected.Rejection, want)
	}
	if !rejected.Rejection.Opaque() {
		t.Error("a content verdict cannot be reproduced from the shape")
	}
}

func TestNewAttempt_KeepsNoMessageText(t *testing.T) {
	d := draft.New()
	d.WebhookURL = "https://discord.com/api/webhooks/1/secret"
	d.Username = "Release Bot"
	d.Content = "private message body"
	d.ContentImageURL = "https://images.example.com/private.png"
	d.UseEmbed = true
	d.EmbedTitle = "private title"
	d.EmbedDescription = "private embed text"
	d.EmbedImageURL = "https://images.example.com/embed.png"
	d.TermsAccepted = true

	rec := New(nil)
	rec.Record(NewAttempt(epoch, *d, sender.Outcome{Status: sender.StatusSent}))
	var buf bytes.Buffer
	if err := rec.ExportJSON(&buf); err != nil {
		t.Fatal(err)
	}

	for _, secret := range []string{"private", "secret", "images.example.com"} {
		if strings.Contains(buf.String(), secret) {
			t.Errorf("recording contains %q:\n%s", secret, buf.String())
		}
	}
	if !strings.Contains(buf.String(), "Release Bot") {
		t.Error("remembered identity fields should be kept")
	}
}

func TestAttempt_Draft(t *testing.T) {
	a := Attempt{
		Profile: schema.Profile{
			WebhookURL: "https://discord.com/api/webhooks/1/redacted",
			Username:   "Release Bot",
			UseEmbed:   true,
			EmbedColor: "#57F287",
		},
		Body: Body{
			ContentLength:          120,
			EmbedTitleLength:       1,
			EmbedDescriptionLength: 56,
			EmbedImage:             true,
			TermsAccepted:          true,
		},
	}

	d := a.Draft()
	if d.Username != "Release Bot" || !d.UseEmbed || d.EmbedColor != "#57F287" {
		t.Errorf("identity = %+v", d)
	}
	if n := utf8.RuneCountInString(d.Content); n != 120 {
		t.Errorf("content length = %d, want 120", n)
	}
	if n := utf8.RuneCountInString(d.EmbedTitle); n != 1 {
		t.Errorf("title length = %d, want 1", n)
	}
	if n := utf8.RuneCountInString(d.EmbedDescription); n != 56 {
		t.Errorf("description length = %d, want 56", n)
	}
	if d.ContentImageURL != "" || d.EmbedImageURL != PlaceholderImage {
		t.Errorf("images = %q, %q", d.ContentImageURL, d.EmbedImageURL)
	}
	if !d.TermsAccepted {
		t.Error("terms flag should be kept")
	}

	v := validate.Default()
	if r := v.Content(d.Content); !r.Valid {
		t.Errorf("filler content rejected: %s", r.Reason)
	}
	if r := v.ImageURL(PlaceholderImage); !r.Valid {
		t.Errorf("placeholder image rejected: %s", r.Reason)
	}
}
