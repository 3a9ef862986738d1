package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"momo-collect/errs"
)

// AcquireToken exchanges credentials for a collection bearer token. A single
// attempt; failures are returned as authentication errors.
func (m *MTNClient) AcquireToken(ctx context.Context, creds Credentials) (Token, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(creds.Principal + ":" + creds.Secret))
	res, err := m.do(ctx, call{
		op:     "create_token",
		stage:  errs.StageAuthentication,
		method: http.MethodPost,
		path:   "/collection/token/",
		header: http.Header{"Authorization": []string{"Basic " + basic}},
		quiet:  true,
	})
	if err != nil {
		return Token{}, err
	}

	var tok Token
	if err := json.Unmarshal(res.body, &tok); err != nil {
		return Token{}, errs.Wrap(err, errs.StageAuthentication, "create_token: malformed response")
	}
	if tok.AccessToken == "" {
		return Token{}, errs.New(errs.StageAuthentication, "create_token: response has no access_token")
	}
	m.log.Info("bearer token acquired", "api_user", creds.Principal, "expires_in", tok.ExpiresIn)
	return tok, nil
}
