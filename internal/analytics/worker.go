package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "page_view_writers"

	// DefaultBatchSize is the max page views per batch.
	DefaultBatchSize = 200

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is the max attempts for one batch.
	DefaultMaxRetries = 3

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 10 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 30 * time.Second

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 5 * time.Second

	deadLetterMaxLen = 10000
)

// WorkerOptions tunes a Worker. Zero values keep the defaults.
type WorkerOptions struct {
	BatchSize       int
	BlockTimeout    time.Duration
	MaxRetries      int
	ClaimInterval   time.Duration
	ClaimIdle       time.Duration
	MetricsInterval time.Duration
	// RetryBackoff is the base delay, doubled per attempt. Defaults to 1s.
	RetryBackoff time.Duration
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = DefaultBlockTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.ClaimInterval <= 0 {
		o.ClaimInterval = DefaultClaimInterval
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = DefaultClaimIdle
	}
	if o.MetricsInterval <= 0 {
		o.MetricsInterval = DefaultMetricsInterval
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	return o
}

// Worker drains the page-view stream into the store.
type Worker struct {
	redis      *redis.Client
	repo       PageViewWriter
	logger     *slog.Logger
	metrics    metrics.Recorder
	consumerID string
	opts       WorkerOptions

	claimStartID string
	lastClaim    time.Time
	lastMetrics  time.Time

	mu       sync.Mutex
	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWorker creates a new page-view worker.
func NewWorker(client *redis.Client, repo PageViewWriter, logger *slog.Logger, consumerID string, recorder metrics.Recorder, opts WorkerOptions) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:        client,
		repo:         repo,
		logger:       logger.With("component", "analytics.worker", "consumer_id", consumerID),
		metrics:      recorder,
		consumerID:   consumerID,
		opts:         opts.withDefaults(),
		claimStartID: "0-0",
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("analytics worker started")

	for {
		if w.isDraining() {
			w.logger.Info("analytics worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("analytics worker stopping")
			return nil
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("process error", "error", err)
			sleep(ctx, time.Second)
		}
	}
}

// Shutdown stops the worker after the in-flight batch.
// It matches server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	w.logger.Info("analytics worker shutdown initiated")
	cancel()

	select {
	case <-done:
		w.logger.Info("analytics worker shutdown complete")
		return nil
	case <-ctx.Done():
		w.logger.Warn("analytics worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) isDraining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draining
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce handles one batch: reclaimed pending messages first, then new ones.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	views, ids := w.decode(ctx, messages)
	if len(views) == 0 {
		// Only poison messages; they are already dead-lettered.
		return w.ack(ctx, ids)
	}

	if err := w.insertWithRetry(ctx, views); err != nil {
		w.logger.Error("batch failed after retries",
			"batch_size", len(views),
			"error", err,
		)
		// Left pending for XAUTOCLAIM.
		return err
	}

	return w.ack(ctx, ids)
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.opts.ClaimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, next, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.opts.ClaimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.opts.BatchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next != "" {
		w.claimStartID = next
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.opts.MetricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetIngestQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.opts.BatchSize),
		Block:    w.opts.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

// decode turns stream messages into page views. Malformed or invalid
// messages go to the dead-letter stream. ids covers every message.
func (w *Worker) decode(ctx context.Context, messages []redis.XMessage) (views []*model.PageView, ids []string) {
	views = make([]*model.PageView, 0, len(messages))
	ids = make([]string, 0, len(messages))

	for _, msg := range messages {
		ids = append(ids, msg.ID)

		raw, ok := msg.Values["payload"].(string)
		if !ok {
			w.deadLetter(ctx, msg, "invalid_format", "payload field missing or not a string")
			continue
		}

		var payload PageViewPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			w.deadLetter(ctx, msg, "unmarshal_error", err.Error())
			continue
		}
		if err := ValidatePageViewPayload(payload); err != nil {
			w.deadLetter(ctx, msg, "validation_error", err.Error())
			continue
		}

		// The stream ID is the idempotency key.
		views = append(views, payload.ToPageView(msg.ID))
	}

	return views, ids
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering poison message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: deadLetterMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          fmt.Sprint(msg.Values["payload"]),
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.logger.Error("failed to write to dead-letter stream",
			"message_id", msg.ID,
			"error", err,
		)
	}

	w.metrics.IncIngestProcessed("dead_lettered")
}

func (w *Worker) insertWithRetry(ctx context.Context, views []*model.PageView) error {
	var lastErr error

	for attempt := 1; attempt <= w.opts.MaxRetries; attempt++ {
		lastErr = w.insert(ctx, views)
		if lastErr == nil {
			return nil
		}
		if attempt == w.opts.MaxRetries {
			break
		}

		backoff := w.opts.RetryBackoff << (attempt - 1)
		w.logger.Warn("batch insert failed, retrying",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", lastErr,
		)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
	}

	for range views {
		w.metrics.IncIngestProcessed("failed")
	}
	return lastErr
}

func (w *Worker) insert(ctx context.Context, views []*model.PageView) error {
	start := time.Now()

	// ON CONFLICT (event_id) DO NOTHING makes redelivery harmless.
	if err := w.repo.BulkInsertPageViews(ctx, views); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}

	elapsed := time.Since(start)
	w.logger.Info("batch processed",
		"events_count", len(views),
		"duration_ms", float64(elapsed.Microseconds())/1000,
	)

	w.metrics.ObserveIngestBatchSize(len(views))
	w.metrics.ObserveIngestBatchDuration(elapsed)
	for range views {
		w.metrics.IncIngestProcessed("success")
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
