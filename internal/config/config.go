package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Log      LogConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path       string
	Migrations string
}

// ImportConfig holds run-level defaults for statement imports.
type ImportConfig struct {
	Mode                   string
	Grouping               string
	WindowDays             int    `mapstructure:"window_days"`
	MaxEntries             int    `mapstructure:"max_entries"`
	ReportMaxLines         int    `mapstructure:"report_max_lines"`
	StrictDates            bool   `mapstructure:"strict_dates"`
	Similarity             string
	DefaultAccount         string `mapstructure:"default_account"`
	DefaultExpenseCategory string `mapstructure:"default_expense_category"`
	DefaultIncomeCategory  string `mapstructure:"default_income_category"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// UIConfig holds presentation settings. Timezone decides what "today" is
// for entries without a date.
type UIConfig struct {
	Timezone string
}

const (
	MinWindowDays     = 1
	MaxWindowDays     = 30
	DefaultWindowDays = 7
)

var (
	validModes      = []string{"preview", "commit"}
	validGroupings  = []string{"none", "manual_keys", "supermarket_monthly"}
	validSimilarity = []string{"similar_text", "levenshtein"}
)

// Load reads configuration from file and env. Env var overrides use prefix LEDGERIMPORT_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGERIMPORT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledgerimport"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGERIMPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing default config file is fine; an explicit one must exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerimport", "ledger.db"))
	v.SetDefault("database.migrations", "internal/database/migrations")
	v.SetDefault("import.mode", "preview")
	v.SetDefault("import.grouping", "none")
	v.SetDefault("import.window_days", DefaultWindowDays)
	v.SetDefault("import.max_entries", 120)
	v.SetDefault("import.report_max_lines", 8)
	v.SetDefault("import.strict_dates", false)
	v.SetDefault("import.similarity", "similar_text")
	v.SetDefault("import.default_account", "")
	v.SetDefault("import.default_expense_category", "")
	v.SetDefault("import.default_income_category", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("ui.timezone", "Local")
}

// Validate clamps the duplicate window and rejects unknown enum values.
func (c *Config) Validate() error {
	switch {
	case c.Import.WindowDays < MinWindowDays:
		c.Import.WindowDays = DefaultWindowDays
	case c.Import.WindowDays > MaxWindowDays:
		c.Import.WindowDays = MaxWindowDays
	}
	if c.Import.MaxEntries <= 0 {
		c.Import.MaxEntries = 120
	}
	if c.Import.ReportMaxLines <= 0 {
		c.Import.ReportMaxLines = 8
	}
	c.Import.Mode = strings.ToLower(strings.TrimSpace(c.Import.Mode))
	c.Import.Grouping = strings.ToLower(strings.TrimSpace(c.Import.Grouping))
	c.Import.Similarity = strings.ToLower(strings.TrimSpace(c.Import.Similarity))
	if !oneOf(c.Import.Mode, validModes) {
		return fmt.Errorf("config: import.mode %q must be one of %v", c.Import.Mode, validModes)
	}
	if !oneOf(c.Import.Grouping, validGroupings) {
		return fmt.Errorf("config: import.grouping %q must be one of %v", c.Import.Grouping, validGroupings)
	}
	if !oneOf(c.Import.Similarity, validSimilarity) {
		return fmt.Errorf("config: import.similarity %q must be one of %v", c.Import.Similarity, validSimilarity)
	}
	if strings.TrimSpace(c.UI.Timezone) == "" {
		c.UI.Timezone = "Local"
	}
	if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
		return fmt.Errorf("config: ui.timezone: %w", err)
	}
	return nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil || c.UI.Timezone == "" {
		return time.Local
	}
	return loc
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("LEDGERIMPORT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "ledgerimport", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations", cfg.Database.Migrations)
	v.Set("import.mode", cfg.Import.Mode)
	v.Set("import.grouping", cfg.Import.Grouping)
	v.Set("import.window_days", cfg.Import.WindowDays)
	v.Set("import.max_entries", cfg.Import.MaxEntries)
	v.Set("import.report_max_lines", cfg.Import.ReportMaxLines)
	v.Set("import.strict_dates", cfg.Import.StrictDates)
	v.Set("import.similarity", cfg.Import.Similarity)
	v.Set("import.default_account", cfg.Import.DefaultAccount)
	v.Set("import.default_expense_category", cfg.Import.DefaultExpenseCategory)
	v.Set("import.default_income_category", cfg.Import.DefaultIncomeCategory)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
