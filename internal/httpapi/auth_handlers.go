package httpapi

import (
	"errors"
	"net/http"
	"time"

	"beybuilmek.com/internal/audit"
	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/user"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "email already registered")
		default:
			writeError(w, r, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	a.issueSession(w, r, u, http.StatusCreated, "user.registered")
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	a.issueSession(w, r, u, http.StatusOK, "user.login")
}

// issueSession mints the token, attaches the session cookie and writes the
// session body. The token is also returned in the body for non-browser
// clients; browsers rely on the cookie alone.
func (a *API) issueSession(w http.ResponseWriter, r *http.Request, u *user.User, code int, event string) {
	token, expiresAt, err := a.issuer.Issue(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session could not be created")
		return
	}
	a.cookies.AttachSession(w, token, expiresAt)
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), u.ID), event, map[string]any{
		"email": u.Email,
	})
	writeJSON(w, code, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(u),
	})
}

// handleLogout clears the session cookie unconditionally. It deliberately
// sits outside the auth guard: a client holding an expired or mangled token
// still needs its cookie cleared, and clearing carries no privilege.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.cookies.ClearSession(w)
	_ = audit.LogEvent(r.Context(), "user.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	u, err := a.users.Find(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// valid token for a deleted account
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
