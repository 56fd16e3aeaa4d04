package handlers

import (
	"errors"
	"net/http"

	"github.com/xdido2/finance-tracker-backend/internal/auth"
	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/middleware"
	"github.com/xdido2/finance-tracker-backend/internal/store"
)

type AuthHandler struct {
	Users  *store.UserStore
	Tokens *auth.TokenManager
}

func NewAuthHandler(users *store.UserStore, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens}
}

// Login: POST /auth/login — form-encoded username/password in exchange for a
// bearer token. Wrong username and wrong password are indistinguishable.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "incorrect_username_or_password", nil)
		return
	}
	user, err := h.Users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusBadRequest, "incorrect_username_or_password", nil)
			return
		}
		writeStoreError(w, err)
		return
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		httpx.JSONError(w, http.StatusBadRequest, "incorrect_username_or_password", nil)
		return
	}
	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me: GET /auth/me — resolves the bearer token to the current user. Routed
// behind RequireAuth, so a missing context id means the token outlived the
// user row.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	user, err := h.Users.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
