package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// ExitError carries a process exit code other than the default 1.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "momo",
		Short:             "MTN MoMo collection orchestrator",
		Long:              `Provisions credentials, acquires a token, submits a request-to-pay and polls it to a terminal state.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewPayCmd())
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
