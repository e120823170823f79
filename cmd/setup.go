package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	updated, err := tui.RunSetup(cfg)
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Fprintln(cmd.OutOrStdout(), "  Setup cancelled; nothing saved.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	if err := config.SaveTo(configPath(), updated); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Saved to %s\n", configPath())
	fmt.Fprintln(out, "  Run `ralphopt setup` anytime to reconfigure.")
	fmt.Fprintln(out)
	return nil
}
