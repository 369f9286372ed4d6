package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"beybuilmek.com/internal/order"
	"beybuilmek.com/internal/payment"
)

func TestOrderStoreMarkPaidTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update orders set status").
		WithArgs("o-1", string(order.StatusPaid), sqlmock.AnyArg(), string(order.StatusPendingPayment)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewOrderStore(db)
	ok, err := store.MarkPaid(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !ok {
		t.Fatal("expected transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderStoreMarkPaidNoOpWhenNotPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update orders set status").
		WithArgs("o-1", string(order.StatusPaid), sqlmock.AnyArg(), string(order.StatusPendingPayment)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select 1 from orders").
		WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	store := NewOrderStore(db)
	ok, err := store.MarkPaid(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if ok {
		t.Fatal("non-pending order must not transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderStoreMarkPaidMissingOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update orders set status").
		WithArgs("missing", string(order.StatusPaid), sqlmock.AnyArg(), string(order.StatusPendingPayment)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select 1 from orders").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	store := NewOrderStore(db)
	if _, err := store.MarkPaid(context.Background(), "missing"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected order.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderStoreCreateInsertsItemsInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into orders").
		WithArgs("o-1", "u-1", "TRY", string(order.StatusPendingPayment), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into order_items").
		WithArgs(sqlmock.AnyArg(), "o-1", "mug", int64(1500), int64(2)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewOrderStore(db)
	err = store.Create(context.Background(), &order.Order{
		ID:        "o-1",
		UserID:    "u-1",
		Currency:  "TRY",
		Items:     []order.Item{{Name: "mug", UnitAmount: 1500, Quantity: 2}},
		Status:    order.StatusPendingPayment,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventStoreMarkProcessedFirstAndReplay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into webhook_events").
		WithArgs("evt-1", "checkout.session.completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into webhook_events").
		WithArgs("evt-1", "checkout.session.completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewEventStore(db)
	first, err := store.MarkProcessed(context.Background(), "evt-1", "checkout.session.completed")
	if err != nil || !first {
		t.Fatalf("first insert: first=%v err=%v", first, err)
	}
	replay, err := store.MarkProcessed(context.Background(), "evt-1", "checkout.session.completed")
	if err != nil {
		t.Fatalf("replay insert: %v", err)
	}
	if replay {
		t.Fatal("replayed event id must report already processed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventStoreUnmarkReleasesEventID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into webhook_events").
		WithArgs("evt-1", "checkout.session.completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("delete from webhook_events").
		WithArgs("evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into webhook_events").
		WithArgs("evt-1", "checkout.session.completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewEventStore(db)
	ctx := context.Background()
	if first, err := store.MarkProcessed(ctx, "evt-1", "checkout.session.completed"); err != nil || !first {
		t.Fatalf("first insert: first=%v err=%v", first, err)
	}
	if err := store.Unmark(ctx, "evt-1"); err != nil {
		t.Fatalf("Unmark: %v", err)
	}
	if first, err := store.MarkProcessed(ctx, "evt-1", "checkout.session.completed"); err != nil || !first {
		t.Fatalf("insert after unmark must be first again: first=%v err=%v", first, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionStoreCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into checkout_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewSessionStore(db)
	err = store.Create(context.Background(), payment.CheckoutSession{
		ID: "cs-1", OrderID: "o-1", UserID: "u-1",
		Amount: 4200, Currency: "TRY", Status: payment.SessionOpen,
		CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, payment.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionStoreSetStatusConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update checkout_sessions set status").
		WithArgs("cs-1", string(payment.SessionOpen), string(payment.SessionCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update checkout_sessions set status").
		WithArgs("cs-1", string(payment.SessionOpen), string(payment.SessionCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewSessionStore(db)
	ok, err := store.SetStatus(context.Background(), "cs-1", payment.SessionOpen, payment.SessionCompleted)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = store.SetStatus(context.Background(), "cs-1", payment.SessionOpen, payment.SessionCompleted)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if ok {
		t.Fatal("already-completed session must not transition again")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
