// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wallet-ledger/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
// A non-positive requestTimeout selects handler.DefaultTimeout.
func NewRouter(walletHandler *handler.WalletHandler, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = handler.DefaultTimeout
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)               // Add a request ID to the context
	r.Use(middleware.RealIP)                  // Use the real IP address
	r.Use(middleware.Logger)                  // Log HTTP requests
	r.Use(middleware.Recoverer)               // Recover from panics and return 500
	r.Use(middleware.Timeout(requestTimeout)) // Cancel the request context after requestTimeout

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Wallet API routes. Static segments are matched before {walletID}.
	r.Route("/wallets", func(r chi.Router) {
		r.Post("/create", walletHandler.CreateWallet)
		r.Get("/all", walletHandler.ListWallets)
		r.Get("/{walletID}", walletHandler.GetWallet)
		r.Post("/{walletID}/operation", walletHandler.ApplyOperation)
	})

	logger.Debug("HTTP routes registered", "request_timeout", requestTimeout)
	return r
}
