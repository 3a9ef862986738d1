package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"momo-collect/cache"
	"momo-collect/logger"
	"momo-collect/metrics"
	"momo-collect/payment"
)

// Aggregator routes payment requests to a provider.
type Aggregator struct {
	Providers map[string]payment.Processor
	Store     cache.IdempotencyStore
	// Timeout bounds one payment end to end; zero means no deadline.
	Timeout time.Duration
	Log     *slog.Logger
}

const defaultProvider = "MTN"

func NewRouter(a *Aggregator) http.Handler {
	if a.Log == nil {
		a.Log = logger.Discard()
	}
	if a.Store == nil {
		a.Store = cache.NewMemoryStore(time.Hour)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())
	r.Post("/v1/pay", a.PayHandler)
	return r
}
