package service

import (
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/events"
)

// plainTextSanitizer strips all markup from user supplied text. The strict
// policy escapes entities, which are unescaped again so that stored text
// round-trips unchanged through edits.
type plainTextSanitizer struct {
	policy *bluemonday.Policy
}

func newPlainTextSanitizer() plainTextSanitizer {
	return plainTextSanitizer{policy: bluemonday.StrictPolicy()}
}

func (p plainTextSanitizer) Sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(value)))
}

// publishEvent emits a domain event and only logs failures.
func publishEvent(ctx context.Context, publisher events.Publisher, logger zerolog.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, data); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish domain event")
	}
}
