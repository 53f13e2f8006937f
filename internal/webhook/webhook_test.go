package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendSuccess(t *testing.T) {
	var (
		gotBody        Payload
		gotContentType string
		gotMethod      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	color := 0x5865F2
	res := NewClient(time.Second, nil).Send(context.Background(), srv.URL, Payload{
		Content:  "hi",
		Username: "bot",
		Embeds:   []Embed{{Title: "t", Color: &color, Image: &EmbedImage{URL: "https://example.com/a.png"}}},
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, MessageSent, res.Message)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "hi", gotBody.Content)
	assert.Equal(t, "bot", gotBody.Username)
	require.Len(t, gotBody.Embeds, 1)
	assert.Equal(t, 0x5865F2, *gotBody.Embeds[0].Color)
	assert.Equal(t, "https://example.com/a.png", gotBody.Embeds[0].Image.URL)
}

func TestClient_OmitsEmptyFields(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	NewClient(time.Second, nil).Send(context.Background(), srv.URL, Payload{Content: "hi"})

	assert.Equal(t, map[string]any{"content": "hi"}, raw)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		retryAfter     string
		wantMessage    string
		wantRetryAfter time.Duration
		wantSecurity   bool
	}{
		{
			name:           "rate limited with header",
			status:         http.StatusTooManyRequests,
			retryAfter:     "1.5",
			wantMessage:    "Rate limited. Please try again in 1.5 seconds.",
			wantRetryAfter: 1500 * time.Millisecond,
		},
		{
			name:        "rate limited without header",
			status:      http.StatusTooManyRequests,
			wantMessage: "Rate limited. Please try again in a few seconds.",
		},
		{
			name:         "forbidden is a security action",
			status:       http.StatusForbidden,
			wantMessage:  "Error: 403 - Forbidden",
			wantSecurity: true,
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			wantMessage: "Error: 404 - Not Found",
		},
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			wantMessage: "Error: 500 - Internal Server Error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			res := NewClient(time.Second, nil).Send(context.Background(), srv.URL, Payload{Content: "x"})

			assert.False(t, res.Success)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.wantMessage, res.Message)
			assert.Equal(t, tt.wantRetryAfter, res.RetryAfter)
			assert.Equal(t, tt.wantSecurity, res.SecurityAction)
			assert.NoError(t, res.Err)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewClient(time.Second, nil).Send(context.Background(), url, Payload{Content: "x"})

	assert.False(t, res.Success)
	assert.False(t, res.SecurityAction)
	assert.Equal(t, MessageTransportFail, res.Message)
	assert.Error(t, res.Err)
}

func TestClient_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := NewClient(10*time.Second, nil).Send(ctx, srv.URL, Payload{Content: "x"})

	assert.False(t, res.Success)
	assert.Equal(t, MessageTransportFail, res.Message)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_InvalidURL(t *testing.T) {
	res := NewClient(0, nil).Send(context.Background(), "://bad", Payload{})
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, 250*time.Millisecond, parseRetryAfter("0.25"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestFromStatus(t *testing.T) {
	ok := FromStatus(204)
	assert.True(t, ok.Success)
	assert.Equal(t, MessageSent, ok.Message)

	limited := FromStatus(429)
	assert.False(t, limited.Success)
	assert.Equal(t, "Rate limited. Please try again in a few seconds.", limited.Message)

	refused := FromStatus(403)
	assert.True(t, refused.SecurityAction)
	assert.Equal(t, "Error: 403 - Forbidden", refused.Message)
}
