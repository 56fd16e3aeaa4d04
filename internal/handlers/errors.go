package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/store"
)

// writeStoreError maps DAL sentinel errors to stable status codes and
// snake_case reasons. Anything unrecognized is an internal error.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, store.ErrInvalidReference):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_reference", nil)
	case errors.Is(err, store.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.JSONError(w, http.StatusServiceUnavailable, "unavailable", nil)
	default:
		slog.Error("store operation failed", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
