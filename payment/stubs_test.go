package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"momo-collect/providers"
)

// stubQuerier replays scripted poll outcomes; past the script it keeps
// answering PENDING.
type stubQuerier struct {
	mu      sync.Mutex
	script  []pollStep
	calls   int
	lookups []string
}

type pollStep struct {
	status string
	err    error
}

func (q *stubQuerier) PaymentStatus(ctx context.Context, correlationID string, tok providers.Token) (*providers.StatusPayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	q.lookups = append(q.lookups, correlationID)
	step := pollStep{status: providers.StatusPending}
	if q.calls <= len(q.script) {
		step = q.script[q.calls-1]
	}
	if step.err != nil {
		return nil, step.err
	}
	raw := fmt.Sprintf(`{"status":%q,"externalId":"ext"}`, step.status)
	return &providers.StatusPayload{Status: step.status, ExternalID: "ext", Raw: []byte(raw)}, nil
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return s.err
}

type stubProvisioner struct {
	mu    sync.Mutex
	ids   []string
	creds func(id string) providers.Credentials
	err   error
}

func (p *stubProvisioner) Provision(ctx context.Context, correlationID string) (providers.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, correlationID)
	if p.err != nil {
		return providers.Credentials{}, p.err
	}
	return p.creds(correlationID), nil
}

type stubTokens struct {
	mu     sync.Mutex
	seen   []providers.Credentials
	issued int
	err    error
}

func (s *stubTokens) AcquireToken(ctx context.Context, creds providers.Credentials) (providers.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, creds)
	if s.err != nil {
		return providers.Token{}, s.err
	}
	s.issued++
	return providers.Token{AccessToken: fmt.Sprintf("token-%d", s.issued)}, nil
}

type stubSubmitter struct {
	mu           sync.Mutex
	instructions []providers.Instruction
	tokens       []providers.Token
	err          error
}

func (s *stubSubmitter) RequestToPay(ctx context.Context, in providers.Instruction, tok providers.Token) (*providers.SubmissionAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions = append(s.instructions, in)
	s.tokens = append(s.tokens, tok)
	if s.err != nil {
		return nil, s.err
	}
	return &providers.SubmissionAck{CorrelationID: in.CorrelationID, ExternalID: "ext", StatusCode: 202}, nil
}
