package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"beybuilmek.com/internal/ids"
	"beybuilmek.com/internal/order"
)

// OrderStore implements order.Store on PostgreSQL.
type OrderStore struct {
	db *sql.DB
}

var _ order.Store = (*OrderStore)(nil)

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into orders(id, user_id, currency, status, created_at, updated_at)
		values($1,$2,$3,$4,$5,$5)
	`, o.ID, o.UserID, o.Currency, o.Status, o.CreatedAt); err != nil {
		return err
	}
	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into order_items(id, order_id, name, unit_amount, quantity)
			values($1,$2,$3,$4,$5)
		`, it.ID, o.ID, it.Name, it.UnitAmount, it.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *OrderStore) Find(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, currency, status, created_at, updated_at
		from orders where id=$1
	`, id).Scan(&o.ID, &o.UserID, &o.Currency, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, currency, status, created_at, updated_at
		from orders where user_id=$1 order by created_at asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Currency, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range res {
		items, err := s.loadItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return res, nil
}

// MarkPaid is a single conditional update: the where clause is the
// check-and-set, so two concurrent webhook deliveries can never both
// transition the order.
func (s *OrderStore) MarkPaid(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update orders set status=$2, updated_at=$3
		where id=$1 and status=$4
	`, id, order.StatusPaid, time.Now().UTC(), order.StatusPendingPayment)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "not pending" from "missing" for the caller.
	var exists int
	err = s.db.QueryRowContext(ctx, `select 1 from orders where id=$1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, order.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, unit_amount, quantity from order_items where order_id=$1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.UnitAmount, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
