package auth

import "errors"

// Verification failures are distinguished for observability only; every one
// of them must be presented to the client as the same generic rejection.
var (
	ErrTokenSignature = errors.New("auth: invalid token signature")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: malformed token")
)
