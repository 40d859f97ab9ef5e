package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionnaire-api/internal/events"
)

func TestNewPublisherWithoutBrokersIsNoop(t *testing.T) {
	publisher := events.NewPublisher(nil, nil, "questionnaire", nil, zerolog.Nop())
	require.IsType(t, events.NopPublisher{}, publisher)
	require.NoError(t, publisher.Publish(context.Background(), events.TypeSubmissionRecorded, nil))
}

func TestPublisherWritesEnvelopeToRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "questionnaire:survey.versioned")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	correlation := func(context.Context) string { return "corr-1" }
	publisher := events.NewPublisher(nil, client, "questionnaire", correlation, zerolog.Nop())

	require.NoError(t, publisher.Publish(ctx, events.TypeSurveyVersioned, map[string]uint{"survey_id": 9}))

	select {
	case msg := <-sub.Channel():
		var envelope struct {
			ID            string          `json:"id"`
			Type          string          `json:"type"`
			CorrelationID string          `json:"correlation_id"`
			Data          map[string]uint `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		require.NotEmpty(t, envelope.ID)
		require.Equal(t, events.TypeSurveyVersioned, envelope.Type)
		require.Equal(t, "corr-1", envelope.CorrelationID)
		require.Equal(t, uint(9), envelope.Data["survey_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}
