package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

const (
	// StreamKey is the Redis stream for page views.
	StreamKey = "stream:page_views"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:page_views:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// PageViewPayload is the compact page-view format carried on the stream.
type PageViewPayload struct {
	VisitorID  string `json:"v"`
	SessionID  string `json:"s"`
	PagePath   string `json:"p"`
	Referrer   string `json:"r,omitempty"`
	Country    string `json:"cc,omitempty"`
	DeviceType string `json:"dt,omitempty"`
	Browser    string `json:"b,omitempty"`
	OS         string `json:"os,omitempty"`
	ViewedAt   int64  `json:"t"` // Unix milliseconds
}

// ToPageView converts the payload into a storable page view.
// eventID is the idempotency key; empty means a fresh one is minted.
func (p PageViewPayload) ToPageView(eventID string) *model.PageView {
	id := ulid.Make().String()
	if eventID == "" {
		eventID = id
	}
	return &model.PageView{
		ID:         id,
		EventID:    eventID,
		VisitorID:  p.VisitorID,
		SessionID:  p.SessionID,
		PagePath:   p.PagePath,
		Referrer:   optional(p.Referrer),
		Country:    optional(p.Country),
		DeviceType: optional(p.DeviceType),
		Browser:    optional(p.Browser),
		OS:         optional(p.OS),
		ViewedAt:   time.UnixMilli(p.ViewedAt).UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Sink accepts captured page views.
type Sink interface {
	RecordPageView(ctx context.Context, payload PageViewPayload) error
}

// PageViewWriter persists page views directly.
type PageViewWriter interface {
	BulkInsertPageViews(ctx context.Context, views []*model.PageView) error
}

// DirectSink writes each page view to the store synchronously.
type DirectSink struct {
	repo    PageViewWriter
	metrics metrics.Recorder
}

// NewDirectSink creates a sink that bypasses the stream.
func NewDirectSink(repo PageViewWriter, recorder metrics.Recorder) *DirectSink {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &DirectSink{repo: repo, metrics: recorder}
}

// RecordPageView inserts the page view.
func (s *DirectSink) RecordPageView(ctx context.Context, payload PageViewPayload) error {
	if err := s.repo.BulkInsertPageViews(ctx, []*model.PageView{payload.ToPageView("")}); err != nil {
		s.metrics.IncPageViewRecorded("failed")
		return fmt.Errorf("insert page view: %w", err)
	}
	s.metrics.IncPageViewRecorded("stored")
	return nil
}

// Publisher enqueues page views to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new page-view publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
	}
}

// Publish adds a page view to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload PageViewPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal page view: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// RecordPageView publishes with a short timeout detached from the request,
// so a client disconnect does not drop the event.
func (p *Publisher) RecordPageView(_ context.Context, payload PageViewPayload) error {
	ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
	defer cancel()

	streamID, err := p.Publish(ctx, payload)
	if err != nil {
		p.logger.Warn("failed to publish page view",
			"page_path", payload.PagePath,
			"error", err,
		)
		p.metrics.IncPageViewRecorded("dropped")
		return err
	}

	p.logger.Debug("page view published",
		"page_path", payload.PagePath,
		"stream_id", streamID,
	)
	p.metrics.IncPageViewRecorded("queued")
	return nil
}
