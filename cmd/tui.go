package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/logging"
	"github.com/theirongolddev/ralphopt/internal/tui"
	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [log-file]",
	Short: "Browse an analysis interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, args []string) error {
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor so background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Diagnostics would corrupt the alternate screen; keep only the file sink.
	fileLogger, closer := logging.NewFileOnly(cfg.Logging)
	defer func() { _ = closer.Close() }()

	opts := analysisOptions(args)
	opts.Logger = fileLogger

	app := tui.NewApp(opts, cfg, !config.Exists(configPath()))
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
