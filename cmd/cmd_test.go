package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo-collect/errs"
	"momo-collect/payment"
	"momo-collect/providers"
)

type fixedProcessor struct {
	res *payment.Result
	err error
}

func (f fixedProcessor) Name() string { return "MTN_MOMO" }

func (f fixedProcessor) ProcessPayment(context.Context, payment.Request) (*payment.Result, error) {
	return f.res, f.err
}

var req = payment.Request{Amount: decimal.NewFromInt(100), PayerPhone: "260971234567", MerchantReference: "INV-1"}

func TestRunPayPrintsResult(t *testing.T) {
	var out bytes.Buffer
	p := fixedProcessor{res: &payment.Result{
		State:         payment.StateSuccessful,
		CorrelationID: "corr-1",
		Status:        &providers.StatusPayload{Status: providers.StatusSuccessful, Raw: []byte(`{"status":"SUCCESSFUL"}`)},
	}}

	require.NoError(t, runPay(context.Background(), &out, p, req))
	assert.JSONEq(t, `{
		"state": "Successful",
		"correlationId": "corr-1",
		"provider": "MTN_MOMO",
		"reference": "INV-1",
		"status": {"status":"SUCCESSFUL"}
	}`, out.String())
}

func TestRunPayFailedExitsZero(t *testing.T) {
	var out bytes.Buffer
	p := fixedProcessor{res: &payment.Result{State: payment.StateFailed, CorrelationID: "corr-2"}}

	require.NoError(t, runPay(context.Background(), &out, p, req))
	assert.Contains(t, out.String(), `"state": "Failed"`)
}

func TestRunPayTimedOutExitsTwo(t *testing.T) {
	var out bytes.Buffer
	p := fixedProcessor{res: &payment.Result{State: payment.StateTimedOut, CorrelationID: "corr-3"}}

	err := runPay(context.Background(), &out, p, req)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	assert.Contains(t, out.String(), `"state": "TimedOut"`)
}

func TestRunPayStageErrorExitsOne(t *testing.T) {
	var out bytes.Buffer
	p := fixedProcessor{err: errs.HTTP(errs.StageAuthentication, "create_token rejected", 401, nil)}

	err := runPay(context.Background(), &out, p, req)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	stage, ok := errs.StageOf(err)
	assert.True(t, ok)
	assert.Equal(t, errs.StageAuthentication, stage)
	assert.Empty(t, out.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
}

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "pay")
}

func TestPayRequiresFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"pay", "--amount", "10"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
