package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beybuilmek.com/internal/order"
)

var (
	// ErrNotOwner rejects checkout for an order the identity does not own.
	ErrNotOwner = errors.New("payment: order does not belong to user")
	// ErrOrderNotPayable rejects checkout for orders past pending_payment.
	ErrOrderNotPayable = errors.New("payment: order is not awaiting payment")
)

// Initiator builds provider checkout sessions for orders. The amount is
// always recomputed from the order's line items at call time.
type Initiator struct {
	orders   order.Store
	sessions SessionStore
	gateway  Gateway
	baseURL  string
	timeout  time.Duration
}

// NewInitiator constructs an Initiator. baseURL is the client-facing origin
// the provider redirects back to.
func NewInitiator(orders order.Store, sessions SessionStore, gateway Gateway, baseURL string, timeout time.Duration) *Initiator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Initiator{
		orders:   orders,
		sessions: sessions,
		gateway:  gateway,
		baseURL:  baseURL,
		timeout:  timeout,
	}
}

// CreateCheckoutSession opens (or reuses) a checkout session for the order.
// Re-invocation while a session is open returns the existing session instead
// of creating a second one; exactly-once payment is ultimately enforced by
// the reconciler's conditional order transition either way.
func (i *Initiator) CreateCheckoutSession(ctx context.Context, userID, orderID string) (CheckoutSession, error) {
	ord, err := i.orders.Find(ctx, orderID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if ord.UserID != userID {
		return CheckoutSession{}, ErrNotOwner
	}
	if ord.Status != order.StatusPendingPayment {
		return CheckoutSession{}, ErrOrderNotPayable
	}

	if existing, err := i.sessions.OpenByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		return CheckoutSession{}, err
	}

	amount := ord.Total()
	if amount <= 0 {
		return CheckoutSession{}, order.ErrInvalidAmount
	}

	gwCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.gateway.CreateCheckoutSession(gwCtx, CheckoutRequest{
		OrderID:     ord.ID,
		UserID:      ord.UserID,
		Amount:      amount,
		Currency:    ord.Currency,
		Description: fmt.Sprintf("order %s", ord.ID),
		SuccessURL:  i.baseURL + "/order/success?order_id=" + ord.ID,
		CancelURL:   i.baseURL + "/order/cancel?order_id=" + ord.ID,
	})
	if err != nil {
		if errors.Is(err, ErrGateway) {
			return CheckoutSession{}, err
		}
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	sess := CheckoutSession{
		ID:          resp.SessionID,
		OrderID:     ord.ID,
		UserID:      ord.UserID,
		Amount:      amount,
		Currency:    ord.Currency,
		RedirectURL: resp.RedirectURL,
		Status:      SessionOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := i.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, ErrSessionExists) {
			// Lost a race with a concurrent checkout for the same order;
			// hand back the session that won.
			return i.sessions.OpenByOrder(ctx, orderID)
		}
		return CheckoutSession{}, err
	}
	return sess, nil
}
