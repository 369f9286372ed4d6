package auth

import (
	"net/http"
	"time"
)

// CookiePolicy carries the transport-security attributes applied to the
// session cookie. HttpOnly is not part of the policy because it is never
// negotiable: the token must not be readable from script.
type CookiePolicy struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// AttachSession sets the session cookie on the outgoing response. The cookie
// expiry matches the token expiry so both invalidate together.
func (p CookiePolicy) AttachSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

// SessionFromRequest reads the raw token value from the session cookie. It
// performs no verification; trust is established by the auth guard.
func (p CookiePolicy) SessionFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(p.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearSession expires the session cookie for logout.
func (p CookiePolicy) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}
