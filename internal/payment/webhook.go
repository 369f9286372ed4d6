package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beybuilmek.com/internal/order"
)

// SignatureHeader carries the provider's webhook signature:
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<raw body>">".
const SignatureHeader = "X-Webhook-Signature"

const defaultTolerance = 5 * time.Minute

var (
	// ErrInvalidSignature fails closed: no side effects, no state change.
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	// ErrMalformedEvent means the body passed signature verification but is
	// not a decodable event envelope.
	ErrMalformedEvent = errors.New("payment: malformed webhook event")
)

// Verifier authenticates webhook deliveries. The caller is unauthenticated
// at the transport layer; the HMAC over the exact raw body bytes is the only
// trust anchor.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock overrides the time source (useful for tolerance tests).
func WithVerifierClock(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if fn != nil {
			v.now = fn
		}
	}
}

// WithTolerance overrides the signature timestamp tolerance window.
func WithTolerance(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// NewVerifier constructs a Verifier. A missing webhook secret is a fatal
// configuration error.
func NewVerifier(secret []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("payment: webhook secret is required")
	}
	v := &Verifier{secret: secret, tolerance: defaultTolerance, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify recomputes the expected signature over the raw body and compares it
// in constant time. Signatures outside the tolerance window are rejected to
// narrow the replay surface; exact replays inside the window are handled by
// the idempotency store, not here.
func (v *Verifier) Verify(rawBody []byte, header string) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	age := v.now().UTC().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrInvalidSignature
	}

	expected := computeSignature(v.secret, ts, rawBody)
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign produces a signature header value for the given body. Used by the
// provider simulator and tests; deployments only ever verify.
func Sign(secret []byte, t time.Time, rawBody []byte) string {
	ts := t.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(computeSignature(secret, ts, rawBody)))
}

func computeSignature(secret []byte, ts int64, rawBody []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, string, error) {
	var tsRaw, sig string
	for _, part := range strings.Split(strings.TrimSpace(header), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsRaw = v
		case "v1":
			sig = v
		}
	}
	if tsRaw == "" || sig == "" {
		return 0, "", errors.New("missing signature components")
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return ts, sig, nil
}

// Outcome reports what a webhook delivery did, for logging, metrics and the
// audit trail. Flagged deliveries were acknowledged but need manual review.
type Outcome struct {
	EventID      string
	EventType    string
	Replay       bool
	Transitioned bool
	OrderID      string
	Ignored      bool
	Flagged      string
}

// Reconciler processes verified webhook events exactly once each and drives
// the pending_payment -> paid transition.
type Reconciler struct {
	verifier *Verifier
	events   EventStore
	sessions SessionStore
	orders   order.Store
}

// NewReconciler constructs a Reconciler.
func NewReconciler(verifier *Verifier, events EventStore, sessions SessionStore, orders order.Store) *Reconciler {
	return &Reconciler{verifier: verifier, events: events, sessions: sessions, orders: orders}
}

// Handle verifies, de-duplicates and applies one webhook delivery.
//
// The error return is reserved for deliveries the provider should retry or
// fix (bad signature, undecodable body, storage failure). Everything else —
// replays, stale events for already-paid orders, unknown session ids — is
// acknowledged success with the detail recorded in the Outcome, because
// re-delivery could never make those succeed differently.
func (r *Reconciler) Handle(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error) {
	if err := r.verifier.Verify(rawBody, signatureHeader); err != nil {
		return Outcome{}, err
	}

	var event Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return Outcome{}, fmt.Errorf("%w: id and type are required", ErrMalformedEvent)
	}

	out := Outcome{EventID: event.ID, EventType: event.Type}

	first, err := r.events.MarkProcessed(ctx, event.ID, event.Type)
	if err != nil {
		return Outcome{}, fmt.Errorf("record event: %w", err)
	}
	if !first {
		out.Replay = true
		return out, nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return r.applyCompleted(ctx, event, out)
	case EventCheckoutExpired:
		// Frees the order for a fresh checkout session.
		if _, err := r.sessions.SetStatus(ctx, event.Data.SessionID, SessionOpen, SessionExpired); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return r.release(ctx, event.ID, fmt.Errorf("expire session: %w", err))
		}
		return out, nil
	default:
		out.Ignored = true
		return out, nil
	}
}

func (r *Reconciler) applyCompleted(ctx context.Context, event Event, out Outcome) (Outcome, error) {
	sess, err := r.sessions.Find(ctx, event.Data.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		out.Flagged = "unknown checkout session " + event.Data.SessionID
		return out, nil
	}
	if err != nil {
		return r.release(ctx, event.ID, fmt.Errorf("resolve session: %w", err))
	}
	out.OrderID = sess.OrderID

	if _, err := r.sessions.SetStatus(ctx, sess.ID, SessionOpen, SessionCompleted); err != nil {
		return r.release(ctx, event.ID, fmt.Errorf("complete session: %w", err))
	}

	transitioned, err := r.orders.MarkPaid(ctx, sess.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		out.Flagged = "session " + sess.ID + " references missing order " + sess.OrderID
		return out, nil
	}
	if err != nil {
		return r.release(ctx, event.ID, fmt.Errorf("mark order paid: %w", err))
	}
	out.Transitioned = transitioned
	return out, nil
}

// release gives the event id back after a storage failure mid-apply. The
// conditional session and order transitions make re-applying the same event
// safe; without the release, the provider's retry would be misread as a
// replay and the completed payment would never reach the order.
func (r *Reconciler) release(ctx context.Context, eventID string, cause error) (Outcome, error) {
	if err := r.events.Unmark(ctx, eventID); err != nil {
		return Outcome{}, fmt.Errorf("%v (unmark event %s: %v)", cause, eventID, err)
	}
	return Outcome{}, cause
}
