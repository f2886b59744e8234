package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// ErrGuardViolation is returned when a checked statement would be blocked
var ErrGuardViolation = errors.New("statement is not tenant scoped")

func guardCmd(factory RuntimeFactory, opts *Options) *cobra.Command {
	c := &cobra.Command{
		Use:   "guard",
		Short: "Raw SQL guard tools",
	}

	c.AddCommand(&cobra.Command{
		Use:   "check <sql>",
		Short: "Report whether a statement passes the tenant guard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt := strings.Join(args, " ")
			return withRuntime(cmd, factory, opts, func(_ context.Context, rt *Runtime, out io.Writer) error {
				if v := rt.Guard.Analyze(stmt); v != nil {
					fmt.Fprintf(out, "VIOLATION: %s\n", v.Reason)
					if len(v.Tables) > 0 {
						fmt.Fprintf(out, "tables: %s\n", strings.Join(v.Tables, ", "))
					}
					return ErrGuardViolation
				}
				fmt.Fprintln(out, "OK")
				return nil
			})
		},
	})
	return c
}
