package providers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"momo-collect/errs"
)

// PaymentStatus fetches the current state of a request-to-pay. Errors are
// polling-stage errors; the resolver decides whether they are fatal.
func (m *MTNClient) PaymentStatus(ctx context.Context, correlationID string, tok Token) (*StatusPayload, error) {
	res, err := m.do(ctx, call{
		op:     "request_to_pay_status",
		stage:  errs.StagePolling,
		method: http.MethodGet,
		path:   "/collection/v1_0/requesttopay/" + correlationID,
		header: http.Header{
			headerTargetEnv: []string{m.endpoint.TargetEnvironment},
			"Authorization": []string{bearer(tok)},
		},
	})
	if err != nil {
		return nil, err
	}

	return decodeStatus(res.body, m.log)
}

// decodeStatus classifies on the status field alone. The remaining fields
// are filled best effort; a mistyped one never hides a terminal status.
func decodeStatus(body []byte, log *slog.Logger) (*StatusPayload, error) {
	var head struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, errs.Wrap(err, errs.StagePolling, "request_to_pay_status: malformed response")
	}

	var st StatusPayload
	if err := json.Unmarshal(body, &st); err != nil {
		log.Debug("status payload has unexpected fields", "status", head.Status, "err", err)
	}
	st.Status = head.Status
	st.Raw = json.RawMessage(body)
	return &st, nil
}
