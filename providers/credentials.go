package providers

import (
	"context"
	"encoding/json"
	"net/http"

	"momo-collect/config"
	"momo-collect/errs"
)

// Provisioner obtains the credentials a transaction authenticates with.
type Provisioner interface {
	Provision(ctx context.Context, correlationID string) (Credentials, error)
}

// NewProvisioner picks the credential path for the configured mode.
func NewProvisioner(cfg config.Config, client *MTNClient) (Provisioner, error) {
	if cfg.Mode == config.ModeProduction {
		return NewStaticProvisioner(cfg.APIUser, cfg.APIKey)
	}
	return &SandboxProvisioner{client: client}, nil
}

// StaticProvisioner hands out the configured production credentials. They
// are shared by every transaction and never mutated.
type StaticProvisioner struct {
	creds Credentials
}

func NewStaticProvisioner(apiUser, apiKey string) (*StaticProvisioner, error) {
	if apiUser == "" || apiKey == "" {
		return nil, errs.Configuration("production API user and key must be configured")
	}
	return &StaticProvisioner{creds: Credentials{Principal: apiUser, Secret: apiKey}}, nil
}

func (p *StaticProvisioner) Provision(ctx context.Context, _ string) (Credentials, error) {
	return p.creds, nil
}

// SandboxProvisioner registers a fresh API user under the transaction's
// correlation id and mints a key for it. Not idempotent: a reused id makes
// the provider reject the registration.
type SandboxProvisioner struct {
	client *MTNClient
}

func NewSandboxProvisioner(client *MTNClient) *SandboxProvisioner {
	return &SandboxProvisioner{client: client}
}

func (p *SandboxProvisioner) Provision(ctx context.Context, correlationID string) (Credentials, error) {
	if err := p.client.CreateAPIUser(ctx, correlationID); err != nil {
		return Credentials{}, err
	}
	key, err := p.client.CreateAPIKey(ctx, correlationID)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Principal: correlationID, Secret: key}, nil
}

// CreateAPIUser registers a sandbox API user. The response is only logged.
func (m *MTNClient) CreateAPIUser(ctx context.Context, referenceID string) error {
	res, err := m.do(ctx, call{
		op:     "create_api_user",
		stage:  errs.StageProvisioning,
		method: http.MethodPost,
		path:   "/v1_0/apiuser",
		header: http.Header{headerReferenceID: []string{referenceID}},
		body:   map[string]string{"providerCallbackHost": m.endpoint.CallbackHost},
	})
	if err != nil {
		return err
	}
	m.log.Info("sandbox api user created", "reference_id", referenceID, "status", res.status)
	return nil
}

// CreateAPIKey mints the secret for a sandbox API user.
func (m *MTNClient) CreateAPIKey(ctx context.Context, referenceID string) (string, error) {
	res, err := m.do(ctx, call{
		op:     "create_api_key",
		stage:  errs.StageProvisioning,
		method: http.MethodPost,
		path:   "/v1_0/apiuser/" + referenceID + "/apikey",
		quiet:  true,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(res.body, &out); err != nil {
		return "", errs.Wrap(err, errs.StageProvisioning, "create_api_key: malformed response")
	}
	if out.APIKey == "" {
		return "", errs.New(errs.StageProvisioning, "create_api_key: response has no apiKey")
	}
	return out.APIKey, nil
}
