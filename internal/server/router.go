package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/auth"
	"github.com/xdido2/finance-tracker-backend/internal/blob"
	"github.com/xdido2/finance-tracker-backend/internal/config"
	"github.com/xdido2/finance-tracker-backend/internal/handlers"
	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/middleware"
	"github.com/xdido2/finance-tracker-backend/internal/store"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. blobs may be nil when object storage is not configured.
func New(db *gorm.DB, cfg config.Config, blobs blob.Store) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	users := store.NewUserStore(db, blobs)
	bills := store.NewBillStore(db, blobs)
	categories := store.NewCategoryStore(db)

	uh := handlers.NewUserHandler(users)
	bh := handlers.NewBillHandler(bills, blobs, cfg.S3Folder)
	ch := handlers.NewCategoryHandler(categories)
	ah := handlers.NewAuthHandler(users, tokens)

	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check; details stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth
	mux.HandleFunc("POST /auth/login", ah.Login)
	mux.Handle("GET /auth/me", middleware.RequireAuth(tokens, http.HandlerFunc(ah.Me)))

	// Users
	mux.HandleFunc("POST /users", uh.Create)
	mux.HandleFunc("GET /users", uh.List)
	mux.HandleFunc("GET /users/{id}", uh.Get)
	mux.HandleFunc("PATCH /users/{id}", uh.Update)
	mux.HandleFunc("DELETE /users/{id}", uh.Delete)

	// Bill categories
	mux.HandleFunc("POST /bill-categories", ch.Create)
	mux.HandleFunc("GET /bill-categories", ch.List)
	mux.HandleFunc("GET /bill-categories/{id}", ch.Get)
	mux.HandleFunc("PUT /bill-categories/{id}", ch.Update)
	mux.HandleFunc("DELETE /bill-categories/{id}", ch.Delete)

	// Bills
	mux.HandleFunc("POST /bills", bh.Create)
	mux.HandleFunc("GET /bills", bh.List)
	mux.HandleFunc("GET /bills/{id}", bh.Get)
	mux.HandleFunc("PUT /bills/{id}", bh.Update)
	mux.HandleFunc("DELETE /bills/{id}", bh.Delete)

	return middleware.Auth(tokens)(withRecover(middleware.Logging(middleware.Metrics(mux))))
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
