package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State of a single payment transaction.
type State string

const (
	StateInitiated  State = "Initiated"
	StateSubmitted  State = "Submitted"
	StatePolling    State = "Polling"
	StateSuccessful State = "Successful"
	StateFailed     State = "Failed"
	StateTimedOut   State = "TimedOut"
)

var transitions = map[State][]State{
	StateInitiated: {StateSubmitted},
	StateSubmitted: {StatePolling},
	StatePolling:   {StateSuccessful, StateFailed, StateTimedOut},
	// terminal
	StateSuccessful: {},
	StateFailed:     {},
	StateTimedOut:   {},
}

// Terminal reports whether the pipeline stops at s.
func (s State) Terminal() bool {
	return s == StateSuccessful || s == StateFailed || s == StateTimedOut
}

// CanTransition checks the transaction state machine.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transaction lives for one ProcessPayment call. Its correlation id is set
// once at creation and never regenerated.
type Transaction struct {
	Amount            decimal.Decimal
	Currency          string
	PayerPhone        string
	MerchantReference string
	CorrelationID     string
	State             State
}

func newTransaction(req Request, currency, correlationID string) *Transaction {
	return &Transaction{
		Amount:            req.Amount,
		Currency:          currency,
		PayerPhone:        req.PayerPhone,
		MerchantReference: req.MerchantReference,
		CorrelationID:     correlationID,
		State:             StateInitiated,
	}
}

func (t *Transaction) advance(to State) error {
	if !CanTransition(t.State, to) {
		return fmt.Errorf("transaction %s: invalid transition %s -> %s", t.CorrelationID, t.State, to)
	}
	t.State = to
	return nil
}
