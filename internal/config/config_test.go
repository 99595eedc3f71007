package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/joshharrison/critpath/internal/cpm"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Analysis.CalculationMode != "longestPath" {
		t.Errorf("Analysis.CalculationMode = %q, want %q", cfg.Analysis.CalculationMode, "longestPath")
	}
	if cfg.Analysis.FloatThreshold != 0 {
		t.Errorf("Analysis.FloatThreshold = %v, want 0", cfg.Analysis.FloatThreshold)
	}
	if !cfg.Analysis.ShowNearCritical {
		t.Error("Analysis.ShowNearCritical should be true by default")
	}
	if !cfg.Analysis.EnableMultiPath {
		t.Error("Analysis.EnableMultiPath should be true by default")
	}
	if cfg.Trace.Mode != "backward" {
		t.Errorf("Trace.Mode = %q, want %q", cfg.Trace.Mode, "backward")
	}
	if cfg.Trace.SelectedPathIndex != 1 {
		t.Errorf("Trace.SelectedPathIndex = %d, want 1", cfg.Trace.SelectedPathIndex)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should validate, got %v", errs)
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Trace.SelectedPathIndex != 1 || cfg.Analysis.CalculationMode != "longestPath" {
		t.Errorf("Load() did not apply defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CRITPATH_ANALYSIS_FLOAT_THRESHOLD", "2.5")
	t.Setenv("CRITPATH_TRACE_MODE", "forward")

	cfg, err := Load(NewViper(""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.FloatThreshold != 2.5 {
		t.Errorf("Analysis.FloatThreshold = %v, want 2.5", cfg.Analysis.FloatThreshold)
	}
	if cfg.Trace.Mode != "forward" {
		t.Errorf("Trace.Mode = %q, want %q", cfg.Trace.Mode, "forward")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "critpath.yaml")
	content := `analysis:
  calculation_mode: floatBased
  float_threshold: 4
  enable_multi_path: false
trace:
  selected_task_id: A100
  selected_path_index: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewViper(path)
	if err := ReadInConfig(v); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode() != cpm.ModeFloatBased {
		t.Errorf("Mode() = %q, want %q", cfg.Mode(), cpm.ModeFloatBased)
	}
	opts := cfg.EngineOptions()
	want := cpm.Options{
		FloatThreshold:    4,
		ShowNearCritical:  true,
		SelectedTaskID:    "A100",
		TraceMode:         cpm.TraceBackward,
		SelectedPathIndex: 3,
		EnableMultiPath:   false,
	}
	if opts != want {
		t.Errorf("EngineOptions() = %+v, want %+v", opts, want)
	}
}

func TestReadInConfig_MissingSearchPathFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if err := ReadInConfig(NewViper("")); err != nil {
		t.Errorf("ReadInConfig() with no config file should succeed, got %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("analysis.calculation_mode", "guesswork")
	v.Set("analysis.float_threshold", -1)
	v.Set("trace.selected_path_index", 0)

	_, err := Load(v)
	if err == nil {
		t.Fatal("Load() should fail for invalid values")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.Contains(err.Error(), "3 validation errors") {
		t.Errorf("unexpected error text: %s", err.Error())
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "critpath") {
		t.Errorf("ConfigDir() = %q", got)
	}
}
