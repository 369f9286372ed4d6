package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrGateway wraps any upstream failure (network, invalid amount, currency
// mismatch). It is surfaced to the caller for a user-initiated retry and is
// never retried automatically.
var ErrGateway = errors.New("payment: gateway error")

// CheckoutRequest carries everything the provider needs to open a checkout
// session. Amount is in minor units and is always computed server-side from
// the order's line items.
type CheckoutRequest struct {
	OrderID     string
	UserID      string
	Amount      int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutResponse is the minimal provider answer the rest of the system
// depends on.
type CheckoutResponse struct {
	SessionID   string
	RedirectURL string
	ExpiresAt   time.Time
}

// Gateway abstracts the external payment provider. The webhook contract is
// deliberately not part of this interface: completion arrives on an
// unauthenticated channel and is verified independently by the Reconciler.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error)
}

// StubGateway fabricates checkout sessions locally. It backs development
// mode (no provider configured) and tests.
type StubGateway struct {
	mu       sync.Mutex
	created  []CheckoutRequest
	failWith error
}

// NewStubGateway creates a stub that always succeeds.
func NewStubGateway() *StubGateway { return &StubGateway{} }

var _ Gateway = (*StubGateway)(nil)

// FailWith makes every subsequent call return the given error.
func (g *StubGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

// Created returns the requests seen so far.
func (g *StubGateway) Created() []CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CheckoutRequest, len(g.created))
	copy(out, g.created)
	return out
}

func (g *StubGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return CheckoutResponse{}, g.failWith
	}
	g.created = append(g.created, req)
	id := "cs_" + uuid.NewString()
	return CheckoutResponse{
		SessionID:   id,
		RedirectURL: "https://checkout.invalid/session/" + id,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}, nil
}
