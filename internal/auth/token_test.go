package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("test-signing-secret")

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, expiresAt, err := iss.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	subject, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "user-42" {
		t.Fatalf("unexpected subject: %s", subject)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(nil, time.Hour); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewIssuer(testSecret, 0); err == nil {
		t.Fatal("expected error for non-positive lifetime")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	iss, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, _, err := iss.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one character in the payload segment; the signature no longer
	// covers the bytes presented.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := iss.Verify(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	// Tampering the signature segment itself must also fail.
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	badSig := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := iss.Verify(badSig); !errors.Is(err, ErrTokenSignature) && !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected signature or malformed error, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issA, _ := NewIssuer([]byte("secret-a"), time.Hour)
	issB, _ := NewIssuer([]byte("secret-b"), time.Hour)

	token, _, err := issA.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issB.Verify(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestVerifyEnforcesExpiryStrictly(t *testing.T) {
	issuedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 24 * time.Hour
	clock := issuedAt

	iss, err := NewIssuer(testSecret, lifetime, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, expiresAt, err := iss.Issue("user-9")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(issuedAt.Add(lifetime)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	clock = issuedAt.Add(lifetime - time.Second)
	if _, err := iss.Verify(token); err != nil {
		t.Fatalf("token should verify just before expiry: %v", err)
	}

	clock = issuedAt.Add(lifetime + time.Second)
	if _, err := iss.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	iss, _ := NewIssuer(testSecret, time.Hour)
	for _, raw := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := iss.Verify(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected ErrTokenMalformed for %q, got %v", raw, err)
		}
	}
}
