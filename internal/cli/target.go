package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/mixload/internal/logging"
	"github.com/wesleyorama2/mixload/internal/target"
)

func newTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Run the built-in users/products/orders service",
		Long: `Target serves an in-memory users, products and orders API that matches the
built-in scenario mix, so a load test can be tried without deploying anything:

  mixload target --port 8080 &
  mixload --duration 10 --workers 5

Latency and error injection make the service behave like a degraded
dependency. Injected errors return the gateway's 503 fallback reply.`,
		Args: cobra.NoArgs,
		RunE: runTarget,
	}

	flags := cmd.Flags()
	flags.String("host", "", "Interface to listen on (default all)")
	flags.IntP("port", "p", 8080, "Port to listen on")
	flags.Duration("latency-min", 0, "Minimum latency added to each API call")
	flags.Duration("latency-max", 0, "Maximum latency added to each API call")
	flags.Float64("error-rate", 0, "Fraction of API calls answered with a 503 fallback (0..1)")
	flags.Int("seed-users", 100, "Users created at startup")
	flags.Int("seed-products", 100, "Products created at startup")
	flags.BoolP("verbose", "v", false, "Log every request")

	return cmd
}

// targetOptions builds target.Options from flags.
func targetOptions(cmd *cobra.Command) (target.Options, string, error) {
	flags := cmd.Flags()

	host, _ := flags.GetString("host")
	port, _ := flags.GetInt("port")
	if port < 0 || port > 65535 {
		return target.Options{}, "", fmt.Errorf("invalid port %d", port)
	}

	opts := target.DefaultOptions()
	opts.LatencyMin, _ = flags.GetDuration("latency-min")
	opts.LatencyMax, _ = flags.GetDuration("latency-max")
	opts.ErrorRate, _ = flags.GetFloat64("error-rate")
	opts.SeedUsers, _ = flags.GetInt("seed-users")
	opts.SeedProducts, _ = flags.GetInt("seed-products")

	if opts.LatencyMin < 0 || opts.LatencyMax < 0 {
		return target.Options{}, "", fmt.Errorf("latency must be >= 0")
	}
	if opts.LatencyMax > 0 && opts.LatencyMin > opts.LatencyMax {
		return target.Options{}, "", fmt.Errorf("latency-min (%s) must be <= latency-max (%s)", opts.LatencyMin, opts.LatencyMax)
	}
	if opts.ErrorRate < 0 || opts.ErrorRate > 1 {
		return target.Options{}, "", fmt.Errorf("error-rate must be between 0 and 1, got %v", opts.ErrorRate)
	}

	return opts, net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func runTarget(cmd *cobra.Command, args []string) error {
	opts, addr, err := targetOptions(cmd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := logging.New(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	opts.Logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Target service listening on %s\n", addr)
	if opts.LatencyMax > 0 {
		fmt.Fprintf(out, "  latency: %s to %s\n", opts.LatencyMin, opts.LatencyMax)
	}
	if opts.ErrorRate > 0 {
		fmt.Fprintf(out, "  error rate: %.1f%%\n", opts.ErrorRate*100)
	}

	start := time.Now()
	if err := target.NewServer(opts).ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("target server failed: %w", err)
	}
	fmt.Fprintf(out, "Target service stopped after %s\n", time.Since(start).Round(time.Second))
	return nil
}
