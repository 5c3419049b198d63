package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/mixload/internal/config"
	"github.com/wesleyorama2/mixload/internal/output"
	"github.com/wesleyorama2/mixload/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Long: `Validate checks a configuration file against the schema and the semantic
rules, renders every body template once, and prints the resulting scenario mix.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().StringP("config", "c", "", "Configuration file (YAML or JSON)")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("a configuration file is required (--config or argument)")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Build renders every template, which catches body errors the schema cannot
	set, err := scenario.Build(cfg, http.DefaultClient, nil)
	if err != nil {
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Configuration is valid: %s\n", output.SuccessIcon(noColor), path)
	fmt.Fprintf(out, "  Name:     %s\n", cfg.Name)
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  Duration: %s\n", cfg.Duration.GetDuration(config.DefaultDuration))
	fmt.Fprintf(out, "  Workers:  %d\n", cfg.WorkerCount())
	fmt.Fprintf(out, "  Pacing:   %s to %s\n", cfg.Pacing.Min.GetDuration(0), cfg.Pacing.Max.GetDuration(0))
	if cfg.MaxRPS > 0 {
		fmt.Fprintf(out, "  Max RPS:  %g\n", cfg.MaxRPS)
	}
	for _, t := range cfg.Thresholds {
		fmt.Fprintf(out, "  Threshold: %s\n", t)
	}
	fmt.Fprintln(out)

	output.NewConsole(output.ConsoleConfig{Writer: out, NoColor: noColor}).PrintScenarioMix(set)
	return nil
}
