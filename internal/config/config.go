package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all ralphopt configuration.
type Config struct {
	Paths      PathsConfig      `toml:"paths"`
	Report     ReportConfig     `toml:"report"`
	History    HistoryConfig    `toml:"history"`
	Logging    LoggingConfig    `toml:"logging"`
	Appearance AppearanceConfig `toml:"appearance"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// PathsConfig locates the inputs.
type PathsConfig struct {
	LogsDir     string `toml:"logs_dir"`
	ProjectsDir string `toml:"projects_dir"`
	LogGlob     string `toml:"log_glob"`
}

// ReportConfig tunes text output.
type ReportConfig struct {
	DetailLimit int `toml:"detail_limit"`
	TopTools    int `toml:"top_tools"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	DBPath   string `toml:"db_path,omitempty"`
	AutoSave bool   `toml:"auto_save"`
}

// LoggingConfig controls diagnostics.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Paths: PathsConfig{
			LogsDir:     filepath.Join(home, ".ralph", "logs"),
			ProjectsDir: filepath.Join(home, ".claude", "projects"),
			LogGlob:     "ralph-*.log",
		},
		Report: ReportConfig{
			DetailLimit: 50,
			TopTools:    10,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralphopt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ralphopt")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory used for run history.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralphopt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ralphopt")
}

// HistoryPath returns the configured history database path or the default.
func (c Config) HistoryPath() string {
	if c.History.DBPath != "" {
		return ExpandHome(c.History.DBPath)
	}
	return filepath.Join(DataDir(), "history.db")
}

// Load reads the default config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path. A missing file yields defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Paths.LogsDir = ExpandHome(cfg.Paths.LogsDir)
	cfg.Paths.ProjectsDir = ExpandHome(cfg.Paths.ProjectsDir)
	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-supplied config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
