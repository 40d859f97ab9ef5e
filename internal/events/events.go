package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types emitted by the domain services.
const (
	TypeSubmissionRecorded = "submission.recorded"
	TypeSurveyVersioned    = "survey.versioned"
	TypeFeedbackReplied    = "feedback.replied"
)

// Envelope is the wire format of every published event.
type Envelope struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	OccurredAt    time.Time   `json:"occurred_at"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Data          interface{} `json:"data"`
}

// Publisher fans domain events out to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// CorrelationFunc extracts a correlation identifier from a request context.
type CorrelationFunc func(ctx context.Context) string

type brokerPublisher struct {
	nats        *nats.Conn
	redis       *redis.Client
	prefix      string
	correlation CorrelationFunc
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPublisher returns a publisher that writes each event to NATS subject
// "<prefix>.<type>" and to the Redis channel "<prefix>:<type>" for whichever of
// the two connections is configured. With neither configured it returns a
// no-op publisher.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, prefix string, correlation CorrelationFunc, logger zerolog.Logger) Publisher {
	if natsConn == nil && redisClient == nil {
		return NopPublisher{}
	}

	prefix = strings.Trim(strings.TrimSpace(prefix), ".:")
	if prefix == "" {
		prefix = "questionnaire"
	}

	return &brokerPublisher{
		nats:        natsConn,
		redis:       redisClient,
		prefix:      prefix,
		correlation: correlation,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		now:         time.Now,
	}
}

func (p *brokerPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	envelope := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	if p.correlation != nil {
		envelope.CorrelationID = p.correlation(ctx)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", eventType, err)
	}

	var firstErr error
	if p.nats != nil {
		subject := p.prefix + "." + eventType
		if err := p.nats.Publish(subject, payload); err != nil {
			p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event to nats")
			firstErr = err
		}
	}

	if p.redis != nil {
		channel := p.prefix + ":" + eventType
		if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("channel", channel).Msg("failed to publish event to redis")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}
