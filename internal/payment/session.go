package payment

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SessionStatus mirrors the provider-side lifecycle of a checkout session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// CheckoutSession is the local record of a provider-side checkout session.
// It is what lets the reconciler resolve a webhook's session id back to an
// order. One session maps to at most one order, and an order has at most one
// open session at a time.
type CheckoutSession struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	UserID      string        `json:"user_id"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	RedirectURL string        `json:"redirect_url"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

var (
	ErrSessionNotFound = errors.New("payment: checkout session not found")
	ErrSessionExists   = errors.New("payment: order already has an open checkout session")
)

// SessionStore persists checkout session records.
type SessionStore interface {
	// Create stores a new open session. ErrSessionExists when the order
	// already has an open one; the uniqueness check must be atomic with the
	// insert.
	Create(ctx context.Context, s CheckoutSession) error
	Find(ctx context.Context, id string) (CheckoutSession, error)
	// OpenByOrder returns the order's open session, ErrSessionNotFound if none.
	OpenByOrder(ctx context.Context, orderID string) (CheckoutSession, error)
	// SetStatus moves a session from one status to another and reports
	// whether the transition happened.
	SetStatus(ctx context.Context, id string, from, to SessionStatus) (bool, error)
}

// InMemorySessions implements SessionStore for development and tests.
type InMemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]CheckoutSession
}

func NewInMemorySessions() *InMemorySessions {
	return &InMemorySessions{sessions: make(map[string]CheckoutSession)}
}

var _ SessionStore = (*InMemorySessions)(nil)

func (s *InMemorySessions) Create(ctx context.Context, sess CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.OrderID == sess.OrderID && existing.Status == SessionOpen {
			return ErrSessionExists
		}
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemorySessions) Find(ctx context.Context, id string) (CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return CheckoutSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *InMemorySessions) OpenByOrder(ctx context.Context, orderID string) (CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.OrderID == orderID && sess.Status == SessionOpen {
			return sess, nil
		}
	}
	return CheckoutSession{}, ErrSessionNotFound
}

func (s *InMemorySessions) SetStatus(ctx context.Context, id string, from, to SessionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, ErrSessionNotFound
	}
	if sess.Status != from {
		return false, nil
	}
	sess.Status = to
	s.sessions[id] = sess
	return true, nil
}
