package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/api/v1/orders":               "/api/v1/orders",
		"/api/v1/orders/01ABCDEF":      "/api/v1/orders/:id",
		"/api/v1/orders/abc/extra":     "/api/v1/orders/abc/extra",
		"/api/v1/payment/webhook":      "/api/v1/payment/webhook",
		"/api/v1/orders?limit=10":      "/api/v1/orders",
		"/api/v1/payment/checkout_session": "/api/v1/payment/checkout_session",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
