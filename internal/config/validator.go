package config

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "analysis.float_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidCalculationModes returns the list of valid calculation modes
func ValidCalculationModes() []string {
	return []string{string(cpm.ModeLongestPath), string(cpm.ModeFloatBased)}
}

// ValidTraceModes returns the list of valid trace directions
func ValidTraceModes() []string {
	return []string{string(cpm.TraceForward), string(cpm.TraceBackward)}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateAnalysis()...)
	errors = append(errors, c.validateTrace()...)
	errors = append(errors, c.validateLogging()...)
	return errors
}

func (c *Config) validateAnalysis() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidCalculationModes(), c.Analysis.CalculationMode) {
		errors = append(errors, ValidationError{
			Field:   "analysis.calculation_mode",
			Value:   c.Analysis.CalculationMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidCalculationModes(), ", ")),
		})
	}

	f := c.Analysis.FloatThreshold
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		errors = append(errors, ValidationError{
			Field:   "analysis.float_threshold",
			Value:   f,
			Message: "must be a finite number >= 0",
		})
	}

	return errors
}

func (c *Config) validateTrace() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidTraceModes(), c.Trace.Mode) {
		errors = append(errors, ValidationError{
			Field:   "trace.mode",
			Value:   c.Trace.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTraceModes(), ", ")),
		})
	}

	if c.Trace.SelectedPathIndex < 1 {
		errors = append(errors, ValidationError{
			Field:   "trace.selected_path_index",
			Value:   c.Trace.SelectedPathIndex,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}
