// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Event types published after a state change commits.
const (
	BookAdded       = "BookAdded"
	RentalCreated   = "RentalCreated"
	RentalReturned  = "RentalReturned"
	RentalOverdue   = "RentalOverdue"
	RatingSubmitted = "RatingSubmitted"
	RewardRedeemed  = "RewardRedeemed"
	PostCreated     = "PostCreated"
	PostVoted       = "PostVoted"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "library."

// Envelope is the wire format of every published event.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Publisher emits domain events. Implementations never block callers on
// delivery failure.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any)
}

// NewEnvelope wraps data for publication.
func NewEnvelope(eventType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// NATS publishes events to a NATS server.
type NATS struct {
	conn *nats.Conn
	log  *slog.Logger
}

// ConnectNATS dials url and returns a publisher.
func ConnectNATS(url string, log *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("librent-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.Any("err", err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: nc, log: log}, nil
}

func (p *NATS) Publish(ctx context.Context, eventType string, data any) {
	env, err := NewEnvelope(eventType, data)
	if err != nil {
		p.log.ErrorContext(ctx, "event encode failed", slog.String("type", eventType), slog.Any("err", err))
		return
	}
	payload, _ := json.Marshal(env)
	if err := p.conn.Publish(SubjectPrefix+eventType, payload); err != nil {
		p.log.WarnContext(ctx, "event publish failed", slog.String("type", eventType), slog.Any("err", err))
	}
}

// Close drains pending messages and closes the connection.
func (p *NATS) Close() error {
	return p.conn.Drain()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, eventType string, data any) {
	env, err := NewEnvelope(eventType, data)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
}

// Types lists the recorded event types in publication order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Events returns a copy of the recorded envelopes.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}
