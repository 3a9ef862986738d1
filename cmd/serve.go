package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"momo-collect/api"
	"momo-collect/cache"
	"momo-collect/config"
	"momo-collect/logger"
	"momo-collect/metrics"
	"momo-collect/payment"
	"momo-collect/providers"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP payment API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	client := providers.NewMTNClient(cfg, providers.WithLogger(log))
	svc, err := payment.NewMTNService(cfg, client, log)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	r := api.NewRouter(&api.Aggregator{
		Providers: map[string]payment.Processor{"MTN": svc},
		Store:     store,
		Timeout:   cfg.HTTP.PaymentTimeout,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTP.Port, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newStore picks Redis when an address is configured and falls back to the
// in-process store otherwise.
func newStore(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.IdempotencyStore, func(), error) {
	ttl := cache.InProgressExpiry(cfg)
	if cfg.Redis.Addr == "" {
		log.Info("idempotency store", "backend", "memory")
		return cache.NewMemoryStore(ttl), func() {}, nil
	}

	rs := cache.NewRedisStore(cfg.Redis, ttl)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, nil, err
	}
	log.Info("idempotency store", "backend", "redis", "addr", cfg.Redis.Addr)
	return rs, func() { _ = rs.Close() }, nil
}
