package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"momo-collect/config"
	"momo-collect/errs"
	"momo-collect/logger"
	"momo-collect/metrics"
	"momo-collect/providers"
)

// Request contains the caller's side of a collection.
type Request struct {
	Amount            decimal.Decimal `json:"amount"`
	PayerPhone        string          `json:"phone"`
	MerchantReference string          `json:"reference"`
}

// Result holds the terminal outcome of a transaction. TimedOut is not a
// success: the provider never answered either way.
type Result struct {
	State         State
	CorrelationID string
	Status        *providers.StatusPayload
}

// Processor is the surface the HTTP and CLI front ends drive.
type Processor interface {
	Name() string
	ProcessPayment(ctx context.Context, req Request) (*Result, error)
}

type TokenIssuer interface {
	AcquireToken(ctx context.Context, creds providers.Credentials) (providers.Token, error)
}

type Submitter interface {
	RequestToPay(ctx context.Context, in providers.Instruction, tok providers.Token) (*providers.SubmissionAck, error)
}

// Service runs provision -> token -> submit -> resolve for each payment.
// It keeps no per-transaction state between calls.
type Service struct {
	name        string
	currency    string
	provisioner providers.Provisioner
	tokens      TokenIssuer
	submitter   Submitter
	resolver    *Resolver
	budget      Budget
	newID       func() string
	log         *slog.Logger
}

type Option func(*Service)

// WithIDGenerator overrides correlation id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithBudget overrides the polling budget taken from config.
func WithBudget(b Budget) Option {
	return func(s *Service) { s.budget = b }
}

func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

func NewService(cfg config.Config, prov providers.Provisioner, tokens TokenIssuer, sub Submitter, res *Resolver, opts ...Option) *Service {
	s := &Service{
		name:        "MTN_MOMO",
		currency:    cfg.Currency,
		provisioner: prov,
		tokens:      tokens,
		submitter:   sub,
		resolver:    res,
		budget:      Budget{MaxAttempts: cfg.Poll.Retries, Interval: cfg.Poll.Interval},
		newID:       uuid.NewString,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMTNService wires every stage to one MTN client.
func NewMTNService(cfg config.Config, client *providers.MTNClient, log *slog.Logger, opts ...Option) (*Service, error) {
	prov, err := providers.NewProvisioner(cfg, client)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	res := NewResolver(client, WithResolverLogger(log))
	opts = append([]Option{WithLogger(log), WithName(client.Name())}, opts...)
	return NewService(cfg, prov, client, client, res, opts...), nil
}

func (s *Service) Name() string {
	return s.name
}

// ProcessPayment runs one transaction to a terminal state. The first stage
// failure is returned as an *errs.Error and later stages are skipped. A
// TimedOut result comes back with a nil error.
func (s *Service) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		metrics.PaymentsTotal.WithLabelValues("Error").Inc()
		return nil, err
	}

	txn := newTransaction(req, s.currency, s.newID())
	log := s.log.With("correlation_id", txn.CorrelationID, "reference", txn.MerchantReference)
	log.Info("processing payment", "amount", txn.Amount.String(), "currency", txn.Currency)

	creds, err := s.provisioner.Provision(ctx, txn.CorrelationID)
	if err != nil {
		return nil, s.fail(txn, errs.StageProvisioning, err)
	}

	tok, err := s.tokens.AcquireToken(ctx, creds)
	if err != nil {
		return nil, s.fail(txn, errs.StageAuthentication, err)
	}

	if _, err := s.submitter.RequestToPay(ctx, providers.Instruction{
		Amount:            txn.Amount,
		PayerPhone:        txn.PayerPhone,
		MerchantReference: txn.MerchantReference,
		CorrelationID:     txn.CorrelationID,
	}, tok); err != nil {
		return nil, s.fail(txn, errs.StageSubmission, err)
	}
	if err := txn.advance(StateSubmitted); err != nil {
		return nil, err
	}

	if err := txn.advance(StatePolling); err != nil {
		return nil, err
	}
	st, err := s.resolver.Resolve(ctx, txn.CorrelationID, tok, s.budget)
	switch {
	case errors.Is(err, errs.ErrPollingTimeout):
		if err := txn.advance(StateTimedOut); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, s.fail(txn, errs.StagePolling, err)
	case st.Status == providers.StatusSuccessful:
		if err := txn.advance(StateSuccessful); err != nil {
			return nil, err
		}
	default:
		if err := txn.advance(StateFailed); err != nil {
			return nil, err
		}
	}

	metrics.PaymentsTotal.WithLabelValues(string(txn.State)).Inc()
	log.Info("payment finished", "state", txn.State)
	return &Result{State: txn.State, CorrelationID: txn.CorrelationID, Status: st}, nil
}

func (s *Service) fail(txn *Transaction, stage errs.Stage, err error) error {
	e := errs.Annotate(err, stage, "correlation_id", txn.CorrelationID)
	metrics.PaymentsTotal.WithLabelValues("Error").Inc()
	metrics.StageFailures.WithLabelValues(string(e.Stage)).Inc()
	return e
}

func validate(req Request) error {
	switch {
	case !req.Amount.IsPositive():
		return errs.Validation("amount must be greater than zero")
	case strings.TrimSpace(req.PayerPhone) == "":
		return errs.Validation("payer phone is required")
	case strings.TrimSpace(req.MerchantReference) == "":
		return errs.Validation("merchant reference is required")
	}
	return nil
}
