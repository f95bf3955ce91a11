// Package email relays contact messages to a transactional email API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Sentinel errors for email delivery.
var (
	ErrNotConfigured  = errors.New("email relay not configured")
	ErrDeliveryFailed = errors.New("email delivery failed")
)

// Message is one outgoing email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// StatusError is a non-2xx response from the email API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email api returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500
}

// Config configures a Client. Zero values keep the defaults.
type Config struct {
	APIURL       string
	APIKey       string
	HTTPClient   *http.Client
	MaxAttempts  int
	RetryBackoff time.Duration
	// RatePerSecond caps outgoing requests. Defaults to 2.
	RatePerSecond float64
}

// Client posts messages to the email API with bearer auth.
type Client struct {
	apiURL      string
	apiKey      string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a new email client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	return &Client{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		http:        cfg.HTTPClient,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:      logger.With("component", "email"),
	}
}

// Configured reports whether the API URL and key are set.
func (c *Client) Configured() bool {
	return c.apiURL != "" && c.apiKey != ""
}

// Send delivers msg, retrying transport errors and 5xx responses.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			c.logger.Info("email sent", "attempt", attempt)
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.retryable() {
			break
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := retryDelay(c.backoff, attempt)
		c.logger.Warn("email send failed, retrying",
			"attempt", attempt,
			"backoff", delay.String(),
			"error", lastErr,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrDeliveryFailed, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: %w", ErrDeliveryFailed, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "Folio-Contact/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
}
