package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/store"
	"github.com/xdido2/finance-tracker-backend/internal/validation"
)

type UserHandler struct {
	Users *store.UserStore
}

func NewUserHandler(users *store.UserStore) *UserHandler { return &UserHandler{Users: users} }

// Create: POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string  `json:"username"`
		Email    *string `json:"email"`
		Password string  `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("username", input.Username, v)
	validation.MaxLen("username", input.Username, 50, v)
	validation.Required("password", input.Password, v)
	if input.Email != nil {
		validation.MaxLen("email", *input.Email, 255, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	user, err := h.Users.Create(r.Context(), store.UserInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// List: GET /users?skip&limit
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	users, err := h.Users.List(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

// Get: GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Update: PATCH /users/{id} — applies only the provided fields.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var body struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if body.Username != nil {
		validation.Required("username", *body.Username, v)
		validation.MaxLen("username", *body.Username, 50, v)
	}
	if body.Email != nil {
		validation.MaxLen("email", *body.Email, 255, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	user, err := h.Users.Update(r.Context(), id, store.UserPatch{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Delete: DELETE /users/{id} — hard delete, cascades to owned bills and
// cleans up their receipt images best-effort.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.NoContent(w)
}
