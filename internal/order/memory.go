package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{orders: make(map[string]*Order)}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, o *Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(o)
	s.orders[o.ID] = cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o), nil
}

func (s *InMemory) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Order
	for _, o := range s.orders {
		if o.UserID == userID {
			res = append(res, clone(o))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// MarkPaid performs the conditional transition under the store lock, so two
// concurrent webhook deliveries cannot both observe pending_payment.
func (s *InMemory) MarkPaid(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != StatusPendingPayment {
		return false, nil
	}
	o.Status = StatusPaid
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func clone(o *Order) *Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
