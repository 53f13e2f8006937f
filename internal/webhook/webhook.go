// Package webhook delivers message payloads to a chat-platform webhook.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single delivery when the caller sets none.
const DefaultTimeout = 15 * time.Second

// User-facing delivery messages.
const (
	MessageSent          = "Message sent successfully!"
	MessageTransportFail = "Failed to send message. Please check your connection and try again."
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Embed is one rich embed.
type Embed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Color       *int        `json:"color,omitempty"`
	Image       *EmbedImage `json:"image,omitempty"`
}

// EmbedImage references the embed's image.
type EmbedImage struct {
	URL string `json:"url"`
}

// Result is the outcome of a delivery. SecurityAction is set when the remote
// refused the payload outright; callers treat that as a violation.
type Result struct {
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
	StatusCode     int           `json:"status_code,omitempty"`
	RetryAfter     time.Duration `json:"retry_after,omitempty"`
	SecurityAction bool          `json:"security_action,omitempty"`
	Err            error         `json:"-"`
}

// Client posts payloads over HTTP.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a Client whose requests time out after timeout.
// A non-positive timeout uses DefaultTimeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(&http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a Client over an existing http.Client.
func NewClientWithHTTP(hc *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: hc,
		userAgent:  "hooksend/1.0",
		logger:     logger,
	}
}

// Send posts p to url. It never returns an error; failures are described by
// the Result.
func (c *Client) Send(ctx context.Context, url string, p Payload) Result {
	body, err := sonic.Marshal(p)
	if err != nil {
		return c.transportFailure(fmt.Errorf("encoding payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return c.transportFailure(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportFailure(fmt.Errorf("posting webhook: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	c.logger.Debug("webhook responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return interpret(resp)
}

func interpret(resp *http.Response) Result {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return Result{Success: true, Message: MessageSent, StatusCode: code}

	case code == http.StatusTooManyRequests:
		header := strings.TrimSpace(resp.Header.Get("Retry-After"))
		wait := "a few"
		if header != "" {
			wait = header
		}
		return Result{
			Message:    fmt.Sprintf("Rate limited. Please try again in %s seconds.", wait),
			StatusCode: code,
			RetryAfter: parseRetryAfter(header),
		}

	default:
		return Result{
			Message:        fmt.Sprintf("Error: %d - %s", code, statusText(resp)),
			StatusCode:     code,
			SecurityAction: code == http.StatusForbidden,
		}
	}
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// parseRetryAfter reads a delay in (possibly fractional) seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func (c *Client) transportFailure(err error) Result {
	c.logger.Warn("webhook delivery failed", zap.Error(err))
	return Result{Message: MessageTransportFail, Err: err}
}

// FromStatus describes a response with the given status code and its
// standard reason phrase, as Send would have.
func FromStatus(code int) Result {
	return interpret(&http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     http.Header{},
	})
}
