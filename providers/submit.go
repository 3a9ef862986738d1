package providers

import (
	"context"
	"net/http"
	"strings"

	"momo-collect/errs"
)

// msisdn drops the international '+' the provider does not accept.
func msisdn(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// RequestToPay submits the payment instruction under the correlation id.
// Success only means the provider accepted it for processing.
func (m *MTNClient) RequestToPay(ctx context.Context, in Instruction, tok Token) (*SubmissionAck, error) {
	body := requestToPay{
		Amount:       in.Amount.String(),
		Currency:     m.currency,
		ExternalID:   m.newID(),
		Payer:        Party{PartyIDType: partyIDTypeMSISDN, PartyID: msisdn(in.PayerPhone)},
		PayerMessage: "Payment for " + in.MerchantReference,
		PayeeNote:    payeeNote,
	}

	header := http.Header{
		headerTargetEnv:   []string{m.endpoint.TargetEnvironment},
		headerReferenceID: []string{in.CorrelationID},
		"Authorization":   []string{bearer(tok)},
	}
	if m.endpoint.CallbackHost != "" {
		header.Set(headerCallbackURL, m.endpoint.CallbackHost)
	}

	res, err := m.do(ctx, call{
		op:     "request_to_pay",
		stage:  errs.StageSubmission,
		method: http.MethodPost,
		path:   "/collection/v1_0/requesttopay",
		header: header,
		body:   body,
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("request to pay accepted", "correlation_id", in.CorrelationID, "external_id", body.ExternalID, "status", res.status)
	return &SubmissionAck{
		CorrelationID: in.CorrelationID,
		ExternalID:    body.ExternalID,
		StatusCode:    res.status,
	}, nil
}
