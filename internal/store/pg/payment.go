package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"beybuilmek.com/internal/payment"
)

// SessionStore implements payment.SessionStore on PostgreSQL. A partial
// unique index on (order_id) where status='open' backs the one-open-session
// -per-order invariant.
type SessionStore struct {
	db *sql.DB
}

var _ payment.SessionStore = (*SessionStore)(nil)

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess payment.CheckoutSession) error {
	res, err := s.db.ExecContext(ctx, `
		insert into checkout_sessions(id, order_id, user_id, amount, currency, redirect_url, status, created_at)
		values($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict do nothing
	`, sess.ID, sess.OrderID, sess.UserID, sess.Amount, sess.Currency, sess.RedirectURL, sess.Status, sess.CreatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return payment.ErrSessionExists
	}
	return nil
}

func (s *SessionStore) Find(ctx context.Context, id string) (payment.CheckoutSession, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, order_id, user_id, amount, currency, redirect_url, status, created_at
		from checkout_sessions where id=$1
	`, id))
}

func (s *SessionStore) OpenByOrder(ctx context.Context, orderID string) (payment.CheckoutSession, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, order_id, user_id, amount, currency, redirect_url, status, created_at
		from checkout_sessions where order_id=$1 and status=$2
	`, orderID, payment.SessionOpen))
}

func (s *SessionStore) SetStatus(ctx context.Context, id string, from, to payment.SessionStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update checkout_sessions set status=$3 where id=$1 and status=$2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SessionStore) scanOne(row *sql.Row) (payment.CheckoutSession, error) {
	var sess payment.CheckoutSession
	err := row.Scan(&sess.ID, &sess.OrderID, &sess.UserID, &sess.Amount, &sess.Currency, &sess.RedirectURL, &sess.Status, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.CheckoutSession{}, payment.ErrSessionNotFound
	}
	if err != nil {
		return payment.CheckoutSession{}, err
	}
	return sess, nil
}

// EventStore implements payment.EventStore on PostgreSQL. Insert-if-absent
// on the primary key is the whole idempotency contract; concurrent
// deliveries of one event id are serialized by the database, not by the
// application.
type EventStore struct {
	db *sql.DB
}

var _ payment.EventStore = (*EventStore)(nil)

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		insert into webhook_events(id, event_type, received_at)
		values($1,$2,$3)
		on conflict (id) do nothing
	`, eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *EventStore) Unmark(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `delete from webhook_events where id=$1`, eventID)
	return err
}
