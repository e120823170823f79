package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "  Config file: %s\n", configPath())
	if config.Exists(configPath()) {
		fmt.Fprintln(out, "  Status: loaded")
	} else {
		fmt.Fprintln(out, "  Status: using defaults (no config file)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [paths]")
	fmt.Fprintf(out, "    Logs directory:     %s\n", cfg.Paths.LogsDir)
	fmt.Fprintf(out, "    Projects directory: %s\n", cfg.Paths.ProjectsDir)
	fmt.Fprintf(out, "    Log glob:           %s\n", cfg.Paths.LogGlob)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [report]")
	fmt.Fprintf(out, "    Detail limit: %d\n", cfg.Report.DetailLimit)
	fmt.Fprintf(out, "    Top tools:    %d\n", cfg.Report.TopTools)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [history]")
	fmt.Fprintf(out, "    Database:  %s\n", cfg.HistoryPath())
	fmt.Fprintf(out, "    Auto-save: %v\n", cfg.History.AutoSave)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [logging]")
	fmt.Fprintf(out, "    Level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Fprintf(out, "    File:  %s\n", config.ExpandHome(cfg.Logging.File))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [appearance]")
	fmt.Fprintf(out, "    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [pricing]")
	printPricing(cmd, cfg.PricingTable())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Run `ralphopt setup` to reconfigure.")
	return nil
}
