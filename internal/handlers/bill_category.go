package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/middleware"
	"github.com/xdido2/finance-tracker-backend/internal/store"
	"github.com/xdido2/finance-tracker-backend/internal/validation"
)

type CategoryHandler struct {
	Categories *store.CategoryStore
}

func NewCategoryHandler(categories *store.CategoryStore) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

// Create: POST /bill-categories. An authenticated caller becomes the owner;
// otherwise the owner comes from the body (nil means a global category).
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string     `json:"name"`
		IconURL *string    `json:"icon_url"`
		UserID  *uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	validation.MaxLen("name", input.Name, 100, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var acting *uuid.UUID
	if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
		acting = &uid
	}
	category, err := h.Categories.Create(r.Context(), store.CategoryInput{
		Name:    input.Name,
		IconURL: input.IconURL,
		UserID:  input.UserID,
	}, acting)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

// List: GET /bill-categories?user_id&skip&limit — strict owner filter.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_user_id", nil)
		return
	}
	skip, limit := pageParams(r)
	categories, err := h.Categories.List(r.Context(), userID, skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

// Get: GET /bill-categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	category, err := h.Categories.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

// Update: PUT /bill-categories/{id}?user_id= — owner scoped. The acting user
// id is taken from the bearer token when present, falling back to the query
// parameter for unauthenticated callers.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	acting, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		acting, err = uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_user_id", nil)
			return
		}
	}
	var body struct {
		Name    *string `json:"name"`
		IconURL *string `json:"icon_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if body.Name != nil {
		validation.Required("name", *body.Name, v)
		validation.MaxLen("name", *body.Name, 100, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	category, err := h.Categories.Update(r.Context(), id, store.CategoryPatch{
		Name:    body.Name,
		IconURL: body.IconURL,
	}, acting)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

// Delete: DELETE /bill-categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Categories.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.NoContent(w)
}
