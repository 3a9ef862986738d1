package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"momo-collect/cache"
	"momo-collect/errs"
	"momo-collect/payment"
)

type payRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Phone     string          `json:"phone"`
	Reference string          `json:"reference"`
	Provider  string          `json:"provider,omitempty"`
}

type payResponse struct {
	State         payment.State   `json:"state"`
	CorrelationID string          `json:"correlationId"`
	Provider      string          `json:"provider"`
	Reference     string          `json:"reference"`
	Status        json.RawMessage `json:"status,omitempty"`
}

// PayHandler runs one collection and answers with its terminal state.
func (a *Aggregator) PayHandler(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	if fe := collect(
		positive("amount", req.Amount),
		required("phone", req.Phone),
		msisdn("phone", req.Phone),
		required("reference", req.Reference),
	); len(fe) > 0 {
		writeError(w, http.StatusBadRequest, "validation", fe.Error(), fe)
		return
	}

	providerName := strings.ToUpper(req.Provider)
	if providerName == "" {
		providerName = defaultProvider
	}
	provider, ok := a.Providers[providerName]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider", fmt.Sprintf("provider %s not found", providerName), nil)
		return
	}

	log := a.Log.With("request_id", middleware.GetReqID(r.Context()), "reference", req.Reference, "provider", provider.Name())

	cached, err := a.Store.CheckOrSetInProgress(r.Context(), req.Reference)
	switch {
	case errors.Is(err, cache.ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", "a payment for this reference is already in progress", nil)
		return
	case err != nil:
		// the guard is advisory; an unavailable store must not block payments
		log.Warn("idempotency store unavailable", "err", err)
	case cached != nil:
		w.Header().Set("Idempotent-Replayed", "true")
		writeRaw(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	res, err := provider.ProcessPayment(ctx, payment.Request{
		Amount:            req.Amount,
		PayerPhone:        strings.TrimPrefix(req.Phone, "+"),
		MerchantReference: req.Reference,
	})
	if err != nil {
		a.clear(req.Reference, log)
		stage, _ := errs.StageOf(err)
		log.Error("payment failed", "stage", stage, "err", err)
		status := http.StatusBadGateway
		if stage == errs.StageValidation {
			status = http.StatusBadRequest
		}
		writeError(w, status, string(stage), err.Error(), nil)
		return
	}

	out := payResponse{
		State:         res.State,
		CorrelationID: res.CorrelationID,
		Provider:      provider.Name(),
		Reference:     req.Reference,
	}
	if res.Status != nil {
		out.Status = res.Status.Raw
	}
	body, err := json.Marshal(out)
	if err != nil {
		a.clear(req.Reference, log)
		writeError(w, http.StatusInternalServerError, "internal_error", "encode response", nil)
		return
	}

	// Only a definitive answer is replayed. TimedOut frees the reference so
	// the caller decides whether to try again.
	if res.State == payment.StateSuccessful || res.State == payment.StateFailed {
		if err := a.Store.SetCompleted(context.WithoutCancel(r.Context()), req.Reference, body); err != nil {
			log.Warn("store completed result", "err", err)
		}
	} else {
		a.clear(req.Reference, log)
	}

	log.Info("payment resolved", "state", res.State, "correlation_id", res.CorrelationID)
	writeRaw(w, http.StatusOK, body)
}

func (a *Aggregator) clear(reference string, log *slog.Logger) {
	if err := a.Store.Clear(context.Background(), reference); err != nil {
		log.Warn("clear idempotency marker", "err", err)
	}
}
