package handlers

import (
	"net/http"
	"strconv"
)

// pageParams reads skip/limit query parameters with the API defaults.
func pageParams(r *http.Request) (skip, limit int) {
	skip, limit = 0, 10
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return skip, limit
}
