// Package outbox implements a transactional outbox. Producers enqueue
// messages in the same database transaction as the state change that caused
// them; a Relay later claims, dispatches and acknowledges them with
// at-least-once delivery.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a row of the outbox table.
type Message struct {
	ID          string
	Topic       string
	Payload     []byte
	Attempts    int
	AvailableAt time.Time
	CreatedAt   time.Time
}

// NewMessage encodes payload as JSON under topic.
func NewMessage(topic string, payload any, now time.Time) (Message, error) {
	if topic == "" {
		return Message{}, invalidConfig("topic is required")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:          uuid.NewString(),
		Topic:       topic,
		Payload:     b,
		AvailableAt: now,
		CreatedAt:   now,
	}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Dispatcher delivers a claimed message. Returning an error schedules a retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg Message) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Source is the storage side of the relay.
type Source interface {
	// Claim locks up to limit due messages with fewer than maxAttempts
	// attempts, increments their attempt counter and returns them.
	// Locks older than lockCutoff are considered abandoned; abandoned
	// messages with no attempts left are marked dead instead.
	Claim(ctx context.Context, now, lockCutoff time.Time, maxAttempts, limit int) ([]Message, error)
	Ack(ctx context.Context, id string, at time.Time) error
	Nack(ctx context.Context, id, lastError string, nextAvailable time.Time) error
	Dead(ctx context.Context, id, lastError string) error
	Pending(ctx context.Context) (int64, error)
}
