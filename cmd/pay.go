package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"momo-collect/config"
	"momo-collect/logger"
	"momo-collect/metrics"
	"momo-collect/payment"
	"momo-collect/providers"
)

type payOptions struct {
	amount    string
	phone     string
	reference string
	retries   int
	interval  time.Duration
}

func NewPayCmd() *cobra.Command {
	var opts payOptions
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Run a single request-to-pay and wait for its outcome",
		Long: `Run one collection against the configured MoMo environment and print the result as JSON.
Exits with status 2 when polling gives up before a terminal status.

Example:
  momo pay --amount 100 --phone 260971234567 --reference INV-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("retries") {
				cfg.Poll.Retries = opts.retries
			}
			if cmd.Flags().Changed("interval") {
				cfg.Poll.Interval = opts.interval
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			amount, err := decimal.NewFromString(opts.amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", opts.amount, err)
			}

			log := logger.NewWithWriter(cfg.Env, cmd.ErrOrStderr())
			metrics.Init()
			client := providers.NewMTNClient(cfg, providers.WithLogger(log))
			svc, err := payment.NewMTNService(cfg, client, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.HTTP.PaymentTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.PaymentTimeout)
				defer cancel()
			}
			return runPay(ctx, cmd.OutOrStdout(), svc, payment.Request{
				Amount:            amount,
				PayerPhone:        opts.phone,
				MerchantReference: opts.reference,
			})
		},
	}

	cmd.Flags().StringVar(&opts.amount, "amount", "", "amount to collect, in the configured currency")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "payer MSISDN")
	cmd.Flags().StringVar(&opts.reference, "reference", "", "merchant reference")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "status queries before giving up (overrides DEFAULT_POLL_RETRIES)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "wait between status queries (overrides DEFAULT_POLL_DELAY_MS)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

type payOutput struct {
	State         payment.State   `json:"state"`
	CorrelationID string          `json:"correlationId"`
	Provider      string          `json:"provider"`
	Reference     string          `json:"reference"`
	Status        json.RawMessage `json:"status,omitempty"`
}

func runPay(ctx context.Context, out io.Writer, proc payment.Processor, req payment.Request) error {
	res, err := proc.ProcessPayment(ctx, req)
	if err != nil {
		return err
	}

	o := payOutput{
		State:         res.State,
		CorrelationID: res.CorrelationID,
		Provider:      proc.Name(),
		Reference:     req.MerchantReference,
	}
	if res.Status != nil {
		o.Status = res.Status.Raw
	}
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(b))

	if res.State == payment.StateTimedOut {
		return &ExitError{Code: 2, Msg: fmt.Sprintf("payment %s did not reach a terminal status", res.CorrelationID)}
	}
	return nil
}
