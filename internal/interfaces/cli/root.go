// Package cli implements erpctl, the operator command line for projection
// maintenance and raw SQL checks.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	projectionapp "github.com/petshop/erp/internal/application/projection"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/spf13/cobra"
)

// Runtime is what the commands operate on
type Runtime struct {
	Replayer projectionapp.Replayer
	Guard    *tenant.SQLGuard
	Close    func() error
}

// RuntimeFactory opens a Runtime for one command invocation
type RuntimeFactory func(ctx context.Context, opts Options) (*Runtime, error)

// Options are the persistent flags
type Options struct {
	LogLevel string
}

// Execute runs erpctl against the configured database
func Execute() {
	cmd := NewRootCmd(OpenRuntime)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree over factory
func NewRootCmd(factory RuntimeFactory) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:          "erpctl",
		Short:        "Pet shop ERP operator tool",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		replayCmd(factory, opts),
		catchUpCmd(factory, opts),
		statusCmd(factory, opts),
		guardCmd(factory, opts),
	)
	return cmd
}

// withRuntime opens a runtime, runs fn and closes it
func withRuntime(cmd *cobra.Command, factory RuntimeFactory, opts *Options, fn func(ctx context.Context, rt *Runtime, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := factory(ctx, *opts)
	if err != nil {
		return fmt.Errorf("failed to open runtime: %w", err)
	}
	if rt.Close != nil {
		defer func() { _ = rt.Close() }()
	}
	return fn(ctx, rt, cmd.OutOrStdout())
}
