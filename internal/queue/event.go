// Package queue moves session lifecycle events over RabbitMQ: an async
// publisher fed by the token authority and an audit consumer that appends
// each event to the session log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// ErrMalformedEvent marks a message body that is not a session event.
var ErrMalformedEvent = errors.New("queue: malformed session event")

// Encode serializes ev for publishing.
func Encode(ev model.SessionEvent) ([]byte, error) {
	if ev.Kind == "" {
		return nil, fmt.Errorf("%w: empty kind", ErrMalformedEvent)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(ev)
}

// Decode parses a message body published by Encode.
func Decode(body []byte) (model.SessionEvent, error) {
	var ev model.SessionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.SessionEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Kind == "" {
		return model.SessionEvent{}, fmt.Errorf("%w: empty kind", ErrMalformedEvent)
	}
	return ev, nil
}

// AuditFields flattens ev into structured log fields.
func AuditFields(ev model.SessionEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.UserID != 0 {
		fields = append(fields, zap.Uint64("user_id", ev.UserID))
	}
	if ev.Username != "" {
		fields = append(fields, zap.String("username", ev.Username))
	}
	if ev.AccessExpiresAt != nil {
		fields = append(fields, zap.Time("access_expires_at", *ev.AccessExpiresAt))
	}
	if ev.RefreshExpiresAt != nil {
		fields = append(fields, zap.Time("refresh_expires_at", *ev.RefreshExpiresAt))
	}
	if ev.Removed > 0 {
		fields = append(fields, zap.Int64("removed", ev.Removed))
	}
	return fields
}
