package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// ErrThresholdsFailed is returned when a run completes but at least one
// threshold does not hold. The report already says which, so it is not
// printed again.
var ErrThresholdsFailed = errors.New("one or more thresholds failed")

// NewRootCmd builds the command tree. Called without a subcommand the root
// command runs a load test, exactly like "mixload run".
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mixload",
		Short:   "A weighted, concurrent mixed-traffic HTTP load generator",
		Version: version,
		Long: `Mixload drives a service with a weighted mix of HTTP scenarios from many
concurrent workers for a fixed duration, then reports success rate, latency
distribution, throughput and per-scenario counts.

Without a configuration file the built-in users/products/orders mix is used:
  mixload --url http://localhost:8080 --duration 60 --workers 50

With a configuration file:
  mixload run -c mixload.yaml --threshold "p95 < 500ms"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLoad,
	}
	addRunFlags(root)

	root.AddCommand(newRunCmd())
	root.AddCommand(newTargetCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInitCmd())

	return root
}

// Execute runs the CLI with the process arguments.
// This is called by main.main().
func Execute() error {
	return ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the CLI with explicit arguments and writers. Errors other
// than ErrThresholdsFailed are printed to stderr as "Error: ...".
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrThresholdsFailed) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return err
}
