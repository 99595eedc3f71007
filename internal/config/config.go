package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/joshharrison/critpath/internal/cpm"
)

// EnvPrefix is prepended to every environment override, e.g.
// CRITPATH_ANALYSIS_FLOAT_THRESHOLD.
const EnvPrefix = "CRITPATH"

// Config represents the complete critpath configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Trace    TraceConfig    `mapstructure:"trace"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AnalysisConfig controls how criticality is determined
type AnalysisConfig struct {
	// CalculationMode selects the criticality model
	// Options: "longestPath", "floatBased"
	CalculationMode string `mapstructure:"calculation_mode"`
	// FloatThreshold is the near-critical tolerance in days (0 disables)
	FloatThreshold float64 `mapstructure:"float_threshold"`
	// ShowNearCritical enables near-critical evaluation
	ShowNearCritical bool `mapstructure:"show_near_critical"`
	// EnableMultiPath allows selecting driving chains other than the first
	EnableMultiPath bool `mapstructure:"enable_multi_path"`
}

// TraceConfig controls the selected task and chain
type TraceConfig struct {
	// SelectedTaskID seeds traces and per-task chain discovery
	SelectedTaskID string `mapstructure:"selected_task_id"`
	// Mode is the trace direction
	// Options: "forward", "backward"
	Mode string `mapstructure:"mode"`
	// SelectedPathIndex is the 1-based preferred driving chain
	SelectedPathIndex int `mapstructure:"selected_path_index"`
}

// LoggingConfig controls diagnostic output
type LoggingConfig struct {
	// Level is the minimum level written
	// Options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Format is the handler format
	// Options: "text", "json"
	Format string `mapstructure:"format"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			CalculationMode:  string(cpm.ModeLongestPath),
			FloatThreshold:   0,
			ShowNearCritical: true,
			EnableMultiPath:  true,
		},
		Trace: TraceConfig{
			Mode:              string(cpm.TraceBackward),
			SelectedPathIndex: 1,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("analysis.calculation_mode", defaults.Analysis.CalculationMode)
	v.SetDefault("analysis.float_threshold", defaults.Analysis.FloatThreshold)
	v.SetDefault("analysis.show_near_critical", defaults.Analysis.ShowNearCritical)
	v.SetDefault("analysis.enable_multi_path", defaults.Analysis.EnableMultiPath)

	v.SetDefault("trace.selected_task_id", defaults.Trace.SelectedTaskID)
	v.SetDefault("trace.mode", defaults.Trace.Mode)
	v.SetDefault("trace.selected_path_index", defaults.Trace.SelectedPathIndex)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// NewViper returns a viper instance with defaults, environment overrides and
// the config file search path registered. An explicit configFile replaces the
// search path.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}
	v.SetConfigName("critpath")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())
	return v
}

// ReadInConfig reads the config file registered on v. A missing file from the
// search path is not an error.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Mode returns the configured calculation mode.
func (c *Config) Mode() cpm.Mode {
	return cpm.Mode(c.Analysis.CalculationMode)
}

// EngineOptions maps the configuration onto engine options.
func (c *Config) EngineOptions() cpm.Options {
	return cpm.Options{
		FloatThreshold:    c.Analysis.FloatThreshold,
		ShowNearCritical:  c.Analysis.ShowNearCritical,
		SelectedTaskID:    c.Trace.SelectedTaskID,
		TraceMode:         cpm.TraceMode(c.Trace.Mode),
		SelectedPathIndex: c.Trace.SelectedPathIndex,
		EnableMultiPath:   c.Analysis.EnableMultiPath,
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "critpath")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".critpath"
	}
	return filepath.Join(home, ".config", "critpath")
}
