package httpapi

import (
	"errors"
	"net/http"

	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/obs"
)

// authenticated guards a route behind the session cookie. A missing, expired
// or otherwise invalid token yields the same 401 so the response never leaks
// which check failed.
func (a *API) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := a.cookies.SessionFromRequest(r)
		if !ok {
			obs.IncAuthFailure("missing_cookie")
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := a.issuer.Verify(token)
		if err != nil {
			obs.IncAuthFailure(authFailureReason(err))
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(auth.ContextWithUser(r.Context(), userID)))
	}
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrTokenSignature):
		return "bad_signature"
	default:
		return "malformed_token"
	}
}
