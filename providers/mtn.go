package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"momo-collect/config"
	"momo-collect/errs"
	"momo-collect/logger"
	"momo-collect/metrics"
)

const (
	headerSubscriptionKey = "Ocp-Apim-Subscription-Key"
	headerReferenceID     = "X-Reference-Id"
	headerTargetEnv       = "X-Target-Environment"
	headerCallbackURL     = "X-Callback-Url"
)

// errServerSide marks a 5xx so the breaker counts it as a failure.
var errServerSide = errors.New("provider server error")

// MTNClient talks to the MTN MoMo collection API for one deployment mode.
// It holds no per-transaction state and is safe for concurrent use.
type MTNClient struct {
	endpoint config.Endpoint
	currency string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	log      *slog.Logger
	newID    func() string
}

type Option func(*MTNClient)

func WithHTTPClient(c *http.Client) Option {
	return func(m *MTNClient) { m.http = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *MTNClient) { m.log = l }
}

// WithExternalIDGenerator overrides the request-to-pay externalId source.
func WithExternalIDGenerator(f func() string) Option {
	return func(m *MTNClient) { m.newID = f }
}

func NewMTNClient(cfg config.Config, opts ...Option) *MTNClient {
	m := &MTNClient{
		endpoint: cfg.Active(),
		currency: cfg.Currency,
		http:     &http.Client{Timeout: cfg.HTTP.Timeout},
		log:      logger.Discard(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mtn-momo",
		Timeout: cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation is not a provider fault.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return m
}

func (m *MTNClient) Name() string {
	return "MTN_MOMO"
}

type call struct {
	op     string
	stage  errs.Stage
	method string
	path   string
	header http.Header
	body   any
	// quiet suppresses response body logging (secrets, tokens).
	quiet bool
}

type response struct {
	status int
	body   []byte
}

// do executes one remote call through the breaker. Any non-2xx response is
// returned as a stage error carrying the status and body.
func (m *MTNClient) do(ctx context.Context, c call) (*response, error) {
	var (
		reader  io.Reader
		payload []byte
	)
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			return nil, errs.Wrap(err, c.stage, c.op+": encode body")
		}
		payload = b
		reader = bytes.NewReader(b)
	}

	url := strings.TrimRight(m.endpoint.BaseURL, "/") + c.path
	req, err := http.NewRequestWithContext(ctx, c.method, url, reader)
	if err != nil {
		return nil, errs.Wrap(err, c.stage, c.op+": build request")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(headerSubscriptionKey, m.endpoint.SubscriptionKey)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	} else if c.method == http.MethodPost {
		req.ContentLength = 0
	}
	if c.quiet {
		m.log.Debug("momo request", "op", c.op, "method", c.method, "url", url)
	} else {
		m.log.Debug("momo request", "op", c.op, "method", c.method, "url", url, "body", string(payload))
	}

	start := time.Now()
	out, err := m.breaker.Execute(func() (interface{}, error) {
		resp, err := m.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		res := &response{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, errServerSide
		}
		return res, nil
	})
	metrics.RemoteCallSeconds.WithLabelValues(c.op).Observe(time.Since(start).Seconds())

	res, _ := out.(*response)
	if res != nil {
		if c.quiet {
			m.log.Debug("momo response", "op", c.op, "method", c.method, "url", url, "status", res.status, "bytes", len(res.body))
		} else {
			m.log.Debug("momo response", "op", c.op, "method", c.method, "url", url, "status", res.status, "body", string(res.body))
		}
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, errs.Wrap(err, c.stage, c.op+": provider circuit open")
	case res != nil && (res.status < 200 || res.status > 299):
		return nil, errs.HTTP(c.stage, c.op+" rejected", res.status, res.body)
	case err != nil:
		return nil, errs.Wrap(err, c.stage, c.op)
	}
	return res, nil
}

func bearer(t Token) string {
	return fmt.Sprintf("Bearer %s", t.AccessToken)
}
