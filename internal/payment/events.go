package payment

import (
	"context"
	"sync"
	"time"
)

// Event types the reconciler reacts to. Anything else is acknowledged and
// ignored so new provider event types never break delivery.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// Event is the provider's webhook envelope. Decoding happens strictly after
// signature verification over the raw body bytes.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the payload shared by the checkout event types.
type EventData struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// EventStore is the durable record of processed webhook event ids. Its only
// contract is an atomic insert-if-absent: the store's atomicity, not
// application locking, resolves two concurrent deliveries of one event id.
type EventStore interface {
	// MarkProcessed records the event id and returns true when this call
	// inserted it, false when it was already present (replay).
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	// Unmark removes a recorded event id. The reconciler calls it when
	// applying the event's side effects fails after the id was recorded, so
	// the provider's retry is treated as a first delivery, not a replay.
	Unmark(ctx context.Context, eventID string) error
}

// InMemoryEvents implements EventStore for development and tests.
type InMemoryEvents struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewInMemoryEvents() *InMemoryEvents {
	return &InMemoryEvents{seen: make(map[string]time.Time)}
}

var _ EventStore = (*InMemoryEvents)(nil)

func (s *InMemoryEvents) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = time.Now().UTC()
	return true, nil
}

func (s *InMemoryEvents) Unmark(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}
