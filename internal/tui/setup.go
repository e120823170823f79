package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/tui/theme"
)

// setupValues are the fields edited by the setup form.
type setupValues struct {
	LogsDir     string
	ProjectsDir string
	Theme       string
	AutoSave    bool
}

func defaultSetupValues(cfg config.Config) setupValues {
	return setupValues{
		LogsDir:     cfg.Paths.LogsDir,
		ProjectsDir: cfg.Paths.ProjectsDir,
		Theme:       cfg.Appearance.Theme,
		AutoSave:    cfg.History.AutoSave,
	}
}

func applySetupValues(cfg config.Config, v setupValues) config.Config {
	if dir := strings.TrimSpace(v.LogsDir); dir != "" {
		cfg.Paths.LogsDir = config.ExpandHome(dir)
	}
	if dir := strings.TrimSpace(v.ProjectsDir); dir != "" {
		cfg.Paths.ProjectsDir = config.ExpandHome(dir)
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
	cfg.History.AutoSave = v.AutoSave
	return cfg
}

func validateDir(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("directory is required")
	}
	return nil
}

func newSetupForm(sessionCount int, vals *setupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	welcome := "Welcome to ralphopt"
	if sessionCount > 0 {
		welcome = fmt.Sprintf("Welcome to ralphopt. Loaded %d sessions.", sessionCount)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(welcome).
				Description("A few settings are saved to "+config.ConfigPath()),
			huh.NewInput().
				Title("Loop logs directory").
				Description("Where ralph-*.log files are written").
				Value(&vals.LogsDir).
				Validate(validateDir),
			huh.NewInput().
				Title("Claude projects directory").
				Description("Root of the per-project session transcripts").
				Value(&vals.ProjectsDir).
				Validate(validateDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
			huh.NewConfirm().
				Title("Save every analysis to run history?").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.AutoSave),
		),
	).WithTheme(huh.ThemeCharm())
}

// RunSetup runs the setup form in the terminal and returns the updated
// configuration. The caller decides whether to save it.
func RunSetup(cfg config.Config) (config.Config, error) {
	vals := defaultSetupValues(cfg)
	if err := newSetupForm(0, &vals).Run(); err != nil {
		return cfg, err
	}
	return applySetupValues(cfg, vals), nil
}
