package order

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status is an order's fulfillment state. The only transition this service
// drives automatically is PendingPayment -> Paid, performed by the webhook
// reconciler through Store.MarkPaid.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusFulfilled      Status = "fulfilled"
	StatusRefunded       Status = "refunded"
	StatusFailed         Status = "failed"
)

// Item is a priced order line. Amounts are minor units (e.g. kurus); no floats.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

// Order groups items bought in one checkout.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Items     []Item    `json:"items"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total computes the order amount from its current line items. This is the
// only amount the payment flow ever trusts; client-supplied totals are
// ignored everywhere.
func (o Order) Total() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.UnitAmount * it.Quantity
	}
	return total
}

var (
	ErrNotFound        = errors.New("order: not found")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidAmount   = errors.New("order: item amounts must be positive")
	ErrInvalidCurrency = errors.New("order: invalid currency")
)

// Validate checks an order before it is persisted.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range o.Items {
		if it.UnitAmount <= 0 || it.Quantity <= 0 {
			return ErrInvalidAmount
		}
		if strings.TrimSpace(it.Name) == "" {
			return ErrNoItems
		}
	}
	c := strings.TrimSpace(o.Currency)
	if c == "" || len(c) > 8 {
		return ErrInvalidCurrency
	}
	return nil
}

// Store describes persistence for orders.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Find(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)

	// MarkPaid transitions the order pending_payment -> paid and reports
	// whether the transition happened. An order in any other state is left
	// untouched and (false, nil) is returned: duplicate or stale completion
	// events are no-ops by construction. Implementations must make the
	// check-and-set atomic; two concurrent calls may both succeed the check
	// only if the store serializes the update.
	MarkPaid(ctx context.Context, id string) (bool, error)
}
