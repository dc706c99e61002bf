package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Authorizer defines the OAuth flow the handler requires.
type Authorizer interface {
	LoginURL() string
	HandleCallback(ctx context.Context, code string) error
}

// AuthHandler serves the brokerage OAuth login flow.
type AuthHandler struct {
	auth   Authorizer
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth Authorizer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Login redirects to the brokerage authorization dialog.
// GET /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.auth.LoginURL(), http.StatusFound)
}

// Callback exchanges the authorization code for an access token.
// GET /callback?code=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code parameter")
		return
	}

	if err := h.auth.HandleCallback(r.Context(), code); err != nil {
		h.logger.ErrorContext(r.Context(), "token exchange failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "authorized",
		"message": "access token saved",
	})
}
