package payment

import (
	"context"
	"log/slog"
	"time"

	"momo-collect/errs"
	"momo-collect/logger"
	"momo-collect/metrics"
	"momo-collect/providers"
)

// StatusQuerier looks up the provider's current view of a request-to-pay.
type StatusQuerier interface {
	PaymentStatus(ctx context.Context, correlationID string, tok providers.Token) (*providers.StatusPayload, error)
}

// Budget bounds how long the resolver waits for a terminal status.
type Budget struct {
	MaxAttempts int
	Interval    time.Duration
}

// Resolver polls for the outcome of a submitted payment. Polling is the
// only resolution path: no callback receiver exists.
type Resolver struct {
	querier StatusQuerier
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

type ResolverOption func(*Resolver)

// WithSleep replaces the backoff wait.
func WithSleep(f func(ctx context.Context, d time.Duration) error) ResolverOption {
	return func(r *Resolver) { r.sleep = f }
}

func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

func NewResolver(q StatusQuerier, opts ...ResolverOption) *Resolver {
	r := &Resolver{querier: q, sleep: sleepCtx, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries up to budget.MaxAttempts times, waiting budget.Interval
// between attempts that did not reach SUCCESSFUL or FAILED. A failed query
// is logged and still uses up an attempt. When the budget runs out the
// error wraps errs.ErrPollingTimeout and the last payload seen, if any, is
// returned alongside it.
func (r *Resolver) Resolve(ctx context.Context, correlationID string, tok providers.Token, budget Budget) (*providers.StatusPayload, error) {
	var last *providers.StatusPayload

	for attempt := 1; attempt <= budget.MaxAttempts; attempt++ {
		st, err := r.querier.PaymentStatus(ctx, correlationID, tok)
		switch {
		case err != nil && ctx.Err() != nil:
			return last, errs.Wrap(ctx.Err(), errs.StagePolling, "polling aborted")
		case err != nil:
			metrics.PollAttempts.WithLabelValues("error").Inc()
			r.log.Warn("status poll failed", "correlation_id", correlationID, "attempt", attempt, "max_attempts", budget.MaxAttempts, "err", err)
		case st.Terminal():
			metrics.PollAttempts.WithLabelValues("terminal").Inc()
			r.log.Info("final status", "correlation_id", correlationID, "status", st.Status, "attempt", attempt)
			return st, nil
		default:
			last = st
			metrics.PollAttempts.WithLabelValues("pending").Inc()
			r.log.Info("payment pending", "correlation_id", correlationID, "status", st.Status, "attempt", attempt, "max_attempts", budget.MaxAttempts, "retry_in", budget.Interval)
		}

		if attempt == budget.MaxAttempts {
			break
		}
		if err := r.sleep(ctx, budget.Interval); err != nil {
			return last, errs.Wrap(err, errs.StagePolling, "polling aborted")
		}
	}

	r.log.Warn("polling timed out", "correlation_id", correlationID, "attempts", budget.MaxAttempts)
	return last, errs.PollingTimeout(budget.MaxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
