// Package audit provides append-only audit trail capture and processing.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
)

const (
	// StreamKey is the Redis stream for audit events.
	StreamKey = "audit:events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "audit:events:deadletter"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 1000000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond

	// FallbackTimeout is the max time to wait for the direct database
	// insert used when the stream is unreachable.
	FallbackTimeout = 2 * time.Second

	// MaxDetailsLength caps the free-form details field.
	MaxDetailsLength = 2000
)

// EventPayload is the compressed event format for the Redis stream.
// The event ID is minted at publish time so the stream path and the
// database fallback share one deduplication key.
type EventPayload struct {
	EventID    string `json:"eid"`           // event_id (ULID)
	UserID     string `json:"uid,omitempty"` // user_id (empty for failed logins)
	UserEmail  string `json:"em"`            // user_email
	Action     string `json:"a"`             // action
	Status     string `json:"s"`             // status
	Details    string `json:"d,omitempty"`   // details (truncated)
	RequestID  string `json:"rid,omitempty"` // request_id
	OccurredAt int64  `json:"t"`             // Unix milliseconds
}

// FallbackStore persists events directly when the stream is unavailable.
type FallbackStore interface {
	Insert(ctx context.Context, event *model.AuditEvent) error
}

// Publisher enqueues audit events to the Redis stream.
type Publisher struct {
	redis          *redis.Client
	fallback       FallbackStore
	logger         *slog.Logger
	metrics        metrics.Recorder
	stream         string
	maxLen         int64
	publishTimeout time.Duration
}

// NewPublisher creates a new audit event publisher.
func NewPublisher(client *redis.Client, fallback FallbackStore, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:          client,
		fallback:       fallback,
		logger:         logger.With("component", "audit.publisher"),
		metrics:        recorder,
		stream:         StreamKey,
		maxLen:         MaxStreamLen,
		publishTimeout: PublishTimeout,
	}
}

// SetStream overrides the default stream key.
func (p *Publisher) SetStream(stream string) {
	if stream != "" {
		p.stream = stream
	}
}

// SetMaxLen overrides the default approximate stream length.
func (p *Publisher) SetMaxLen(maxLen int64) {
	if maxLen > 0 {
		p.maxLen = maxLen
	}
}

// SetPublishTimeout overrides the default publish timeout.
func (p *Publisher) SetPublishTimeout(timeout time.Duration) {
	if timeout > 0 {
		p.publishTimeout = timeout
	}
}

// Publish adds an audit event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload EventPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// Record assigns identity fields and enqueues the event without blocking
// the caller. When the stream is unreachable the event is written straight
// to the database, so the trail survives a cache outage.
func (p *Publisher) Record(event *model.AuditEvent) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Details = TruncateDetails(event.Details)

	payload := PayloadFromEvent(event)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish audit event",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
			p.recordFallback(event)
			return
		}

		p.logger.Debug("audit event published",
			"action", event.Action,
			"stream_id", streamID,
		)
		p.metrics.IncAuditEventPublished("success")
	}()
}

// recordFallback writes the event directly to the database.
func (p *Publisher) recordFallback(event *model.AuditEvent) {
	if p.fallback == nil {
		p.logger.Error("audit event lost, no fallback store",
			"action", event.Action,
			"event_id", event.ID,
		)
		p.metrics.IncAuditEventPublished("dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), FallbackTimeout)
	defer cancel()

	if err := p.fallback.Insert(ctx, event); err != nil {
		p.logger.Error("audit event lost",
			"action", event.Action,
			"event_id", event.ID,
			"error", err,
		)
		p.metrics.IncAuditEventPublished("dropped")
		return
	}

	p.logger.Info("audit event persisted via fallback",
		"action", event.Action,
		"event_id", event.ID,
	)
	p.metrics.IncAuditEventPublished("fallback")
}

// PayloadFromEvent compresses an event into the stream wire format.
func PayloadFromEvent(event *model.AuditEvent) EventPayload {
	return EventPayload{
		EventID:    event.ID,
		UserID:     event.UserID,
		UserEmail:  event.UserEmail,
		Action:     event.Action,
		Status:     event.Status,
		Details:    event.Details,
		RequestID:  event.RequestID,
		OccurredAt: event.OccurredAt.UnixMilli(),
	}
}

// TruncateDetails truncates the details field to MaxDetailsLength chars.
func TruncateDetails(details string) string {
	if len(details) > MaxDetailsLength {
		return details[:MaxDetailsLength]
	}
	return details
}
