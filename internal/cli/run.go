package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/mixload/internal/config"
	"github.com/wesleyorama2/mixload/internal/load"
	"github.com/wesleyorama2/mixload/internal/load/metrics"
	"github.com/wesleyorama2/mixload/internal/logging"
	"github.com/wesleyorama2/mixload/internal/output"
	"github.com/wesleyorama2/mixload/internal/report"
	"github.com/wesleyorama2/mixload/internal/scenario"
)

// progressInterval is how often live stats are refreshed.
const progressInterval = time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a mixed load test",
		Long: `Run spawns --workers concurrent loops for --duration seconds. Each loop
picks a scenario by weight, executes it, records the outcome and sleeps a
random pacing interval before the next pick.

Flags that are set explicitly override values from the configuration file.
Interrupting the run (Ctrl+C) stops new iterations, lets calls in flight
finish and prints the partial results.`,
		Args: cobra.NoArgs,
		RunE: runLoad,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Int("duration", int(config.DefaultDuration/time.Second), "Test duration in seconds")
	flags.Int("workers", config.DefaultWorkers, "Number of concurrent workers")
	flags.String("url", config.DefaultBaseURL, "Base URL of the service under test")

	flags.StringP("config", "c", "", "Configuration file (YAML or JSON)")
	flags.Duration("min-delay", config.DefaultMinDelay, "Minimum pause between iterations of a worker")
	flags.Duration("max-delay", config.DefaultMaxDelay, "Maximum pause between iterations of a worker")
	flags.DurationP("timeout", "t", config.DefaultTimeout, "Request timeout")
	flags.Float64("max-rps", 0, "Global request rate ceiling (0 = unlimited)")
	flags.Int64("seed", 0, "Seed for scenario selection and pacing (0 = time based)")
	flags.Bool("insecure", false, "Skip TLS certificate verification")

	flags.StringArray("threshold", nil, `Pass/fail criterion, e.g. "p95 < 500ms" (repeatable)`)
	flags.String("format", "text", "Report format: text, json, yaml, junit or html")
	flags.Bool("json", false, "Shorthand for --format json")
	flags.StringP("output", "o", "", "Write the report to a file instead of stdout")
	flags.BoolP("quiet", "q", false, "Disable live progress output, show only the verdict")
	flags.Bool("no-color", false, "Disable colored output")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
}

// runSettings is everything a run needs after flags and config are merged.
type runSettings struct {
	cfg      *config.TestConfig
	duration time.Duration
	workers  int

	format      report.Format
	outputPath  string
	quiet       bool
	noColor     bool
	verbose     bool
	insecure    bool
	metricsAddr string
}

// resolveRun loads the configuration (or the built-in mix) and applies the
// flags that were set explicitly.
func resolveRun(cmd *cobra.Command) (*runSettings, error) {
	flags := cmd.Flags()

	cfg := config.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()

	if flags.Changed("url") {
		cfg.BaseURL, _ = flags.GetString("url")
	}
	if flags.Changed("min-delay") {
		cfg.Pacing.Min = durationFlag(cmd, "min-delay")
	}
	if flags.Changed("max-delay") {
		cfg.Pacing.Max = durationFlag(cmd, "max-delay")
	}
	if flags.Changed("timeout") {
		cfg.Timeout = durationFlag(cmd, "timeout")
	}
	if flags.Changed("max-rps") {
		cfg.MaxRPS, _ = flags.GetFloat64("max-rps")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("threshold") {
		extra, _ := flags.GetStringArray("threshold")
		cfg.Thresholds = append(cfg.Thresholds, extra...)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &runSettings{
		cfg:      cfg,
		duration: cfg.Duration.GetDuration(config.DefaultDuration),
		workers:  cfg.WorkerCount(),
	}

	// Zero and negative values are legal here: they mean an empty run and a
	// run whose deadline has already passed.
	if flags.Changed("duration") {
		seconds, _ := flags.GetInt("duration")
		s.duration = time.Duration(seconds) * time.Second
	}
	if flags.Changed("workers") {
		s.workers, _ = flags.GetInt("workers")
	}

	formatName, _ := flags.GetString("format")
	if asJSON, _ := flags.GetBool("json"); asJSON {
		formatName = string(report.FormatJSON)
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	s.format = format

	s.outputPath, _ = flags.GetString("output")
	s.quiet, _ = flags.GetBool("quiet")
	s.noColor, _ = flags.GetBool("no-color")
	s.verbose, _ = flags.GetBool("verbose")
	s.insecure, _ = flags.GetBool("insecure")
	s.metricsAddr, _ = flags.GetString("metrics-addr")

	return s, nil
}

func durationFlag(cmd *cobra.Command, name string) config.Duration {
	d, _ := cmd.Flags().GetDuration(name)
	return config.Duration(d)
}

// newLimiter returns nil for an unlimited rate.
func newLimiter(maxRPS float64) load.Limiter {
	if maxRPS <= 0 {
		return nil
	}
	burst := int(math.Ceil(maxRPS))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(maxRPS), burst)
}

// runLoad runs a load test
func runLoad(cmd *cobra.Command, args []string) error {
	s, err := resolveRun(cmd)
	if err != nil {
		return err
	}
	cfg := s.cfg

	logger, err := logging.New(s.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	clientCfg := scenario.DefaultHTTPClientConfig()
	clientCfg.Timeout = cfg.Timeout.GetDuration(config.DefaultTimeout)
	clientCfg.MaxIdleConnsPerHost = max(clientCfg.MaxIdleConnsPerHost, s.workers)
	clientCfg.InsecureSkipVerify = s.insecure
	client := scenario.NewHTTPClient(clientCfg)

	set, err := scenario.Build(cfg, client, logger)
	if err != nil {
		return err
	}

	engine := metrics.NewEngine()

	driver, err := load.NewDriver(load.Options{
		Duration: s.duration,
		Workers:  s.workers,
		Pacing:   load.RandomPacing(cfg.Pacing.Min.GetDuration(0), cfg.Pacing.Max.GetDuration(0)),
		Seed:     cfg.Seed,
		Limiter:  newLimiter(cfg.MaxRPS),
		Observer: engine,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// A machine-readable report on stdout must not be mixed with console text
	reportToStdout := s.format != report.FormatText && s.outputPath == ""
	consoleWriter := cmd.OutOrStdout()
	if reportToStdout {
		consoleWriter = cmd.ErrOrStderr()
	}
	console := output.NewConsole(output.ConsoleConfig{
		Name:     cfg.Name,
		Target:   cfg.BaseURL,
		Workers:  s.workers,
		Duration: s.duration,
		Writer:   consoleWriter,
		Quiet:    s.quiet || reportToStdout,
		NoColor:  s.noColor,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.metricsAddr != "" {
		addr, shutdown, err := serveMetrics(s.metricsAddr, engine.Handler(), logger)
		if err != nil {
			return err
		}
		defer shutdown()
		logger.Info("serving metrics", zap.String("addr", addr))
	}

	console.PrintHeader()
	if s.verbose && !s.quiet && !reportToStdout {
		console.PrintScenarioMix(set)
	}

	result, err := runWithProgress(ctx, driver, set, func() {
		console.Report(output.StatsFromSnapshot(engine.Snapshot(), driver.Progress(), s.duration, s.workers))
	})
	if err != nil {
		return err
	}

	if result.Interrupted {
		console.PrintInterrupted()
	}

	summary := report.SummarizeRun(result)
	thresholds := report.Evaluate(summary, cfg.Thresholds)
	console.PrintSummary(summary, thresholds)

	if s.format != report.FormatText || s.outputPath != "" {
		doc := report.NewDocument(summary, thresholds)
		doc.Name = cfg.Name
		doc.TargetURL = cfg.BaseURL
		doc.Workers = result.Workers
		doc.StartTime = result.StartTime
		doc.EndTime = result.EndTime
		doc.Interrupted = result.Interrupted

		if err := writeReport(cmd.OutOrStdout(), s, doc); err != nil {
			return err
		}
		if s.outputPath != "" && !s.quiet {
			fmt.Fprintf(consoleWriter, "Report: %s\n", s.outputPath)
		}
	}

	if !report.Passed(thresholds) {
		return ErrThresholdsFailed
	}
	return nil
}

// runWithProgress runs the driver and calls tick every progressInterval
// until it returns.
func runWithProgress(ctx context.Context, driver *load.Driver, set *load.ScenarioSet, tick func()) (*load.RunResult, error) {
	var (
		result *load.RunResult
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = driver.Run(ctx, set)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return result, runErr
		case <-ticker.C:
			tick()
		}
	}
}

func writeReport(stdout io.Writer, s *runSettings, doc *report.Document) error {
	if s.outputPath == "" {
		return report.Write(stdout, s.format, doc)
	}
	if err := report.Save(s.outputPath, s.format, doc); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// serveMetrics exposes h under /metrics. The listener is opened before
// returning so address errors surface immediately.
func serveMetrics(addr string, h http.Handler, logger *zap.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on metrics address: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return ln.Addr().String(), shutdown, nil
}
