package providers

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Request-to-pay status values reported by the provider.
const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

const (
	partyIDTypeMSISDN = "MSISDN"
	payeeNote         = "Payment Initiated"
)

// Credentials authenticate against the token endpoint.
type Credentials struct {
	Principal string // API user id
	Secret    string // API key
}

// Token is a short-lived bearer token scoped to one Credentials pair.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Instruction is what the submitter turns into a request-to-pay.
type Instruction struct {
	Amount            decimal.Decimal
	PayerPhone        string
	MerchantReference string
	CorrelationID     string
}

type Party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type requestToPay struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        Party  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// SubmissionAck means the provider accepted the instruction for
// asynchronous processing. It says nothing about the outcome.
type SubmissionAck struct {
	CorrelationID string
	ExternalID    string
	StatusCode    int
}

// StatusPayload is the provider's view of a request-to-pay.
type StatusPayload struct {
	Amount                 string          `json:"amount"`
	Currency               string          `json:"currency"`
	FinancialTransactionID string          `json:"financialTransactionId,omitempty"`
	ExternalID             string          `json:"externalId"`
	Payer                  Party           `json:"payer"`
	PayerMessage           string          `json:"payerMessage,omitempty"`
	PayeeNote              string          `json:"payeeNote,omitempty"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`

	// Raw is the body exactly as the provider sent it.
	Raw json.RawMessage `json:"-"`
}

// Terminal reports whether the status ends polling.
func (s *StatusPayload) Terminal() bool {
	return s.Status == StatusSuccessful || s.Status == StatusFailed
}
