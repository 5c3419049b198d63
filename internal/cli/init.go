package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/mixload/internal/config"
)

const defaultConfigFile = "mixload.yaml"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the built-in configuration to a file",
		Long: `Init writes the built-in users/products/orders mix as a configuration file
(YAML, or JSON for a .json name) to use as a starting point.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	path := defaultConfigFile
	if len(args) == 1 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}

	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
