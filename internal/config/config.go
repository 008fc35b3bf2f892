// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults for run configuration.
const (
	DefaultTargetScore          = 85
	DefaultMaxIterations        = 5
	DefaultStagnationWindow     = 3
	DefaultRegressionMargin     = 5
	DefaultGoodEnoughFloor      = 8.0
	DefaultMaxAttempts          = 3
	DefaultQualityThreshold     = 70
	DefaultFailOpenScore        = 70
	DefaultScoreSamples         = 1
	DefaultOracleTimeoutSeconds = 60
	DefaultRubricVersion        = "v1"
	DefaultProvider             = "gemini"
	DefaultMaxPassages          = 3
	DefaultBatchConcurrency     = 4
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; zero values are filled by MergeWithDefaults.
type Config struct {
	// Convergence
	TargetScore      int     `json:"target_score,omitempty" validate:"min=0,max=100"`
	MaxIterations    int     `json:"max_iterations,omitempty" validate:"min=0,max=50"`
	StagnationWindow int     `json:"stagnation_window,omitempty" validate:"min=0,max=50"`
	RegressionMargin *int    `json:"regression_margin,omitempty" validate:"omitempty,min=0,max=100"`
	GoodEnoughFloor  float64 `json:"good_enough_floor,omitempty" validate:"min=0,max=10"`

	// Validation gate
	MaxAttempts      int `json:"max_attempts,omitempty" validate:"min=0,max=10"`
	QualityThreshold int `json:"quality_threshold,omitempty" validate:"min=0,max=100"`
	FailOpenScore    int `json:"fail_open_score,omitempty" validate:"min=0,max=100"`

	// Scoring
	ScoreSamples  int    `json:"score_samples,omitempty" validate:"min=0,max=5"`
	RubricVersion string `json:"rubric_version,omitempty"`
	RubricFile    string `json:"rubric_file,omitempty"`   // YAML file with extra rubric versions
	StrategyFile  string `json:"strategy_file,omitempty"` // YAML file with strategy overrides
	// Strategies restricts the run to these strategy IDs. Empty means all.
	Strategies []string `json:"strategies,omitempty"`

	// Suggestion mode
	MaxPassages int `json:"max_passages,omitempty" validate:"min=0,max=20"`

	// LLM
	Provider             string `json:"provider,omitempty" validate:"omitempty,oneof=gemini anthropic openai"`
	Model                string `json:"model,omitempty"`
	APIKey               string `json:"api_key,omitempty"`
	RequestsPerMinute    int    `json:"requests_per_minute,omitempty" validate:"min=0"`
	OracleTimeoutSeconds *int   `json:"oracle_timeout_seconds,omitempty" validate:"omitempty,min=0,max=600"`

	// Runtime
	BatchConcurrency int    `json:"batch_concurrency,omitempty" validate:"min=0,max=64"`
	DatabaseURL      string `json:"database_url,omitempty"` // PostgreSQL connection URL
	Verbose          bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() Config {
	margin := DefaultRegressionMargin
	timeout := DefaultOracleTimeoutSeconds
	return Config{
		TargetScore:          DefaultTargetScore,
		MaxIterations:        DefaultMaxIterations,
		StagnationWindow:     DefaultStagnationWindow,
		RegressionMargin:     &margin,
		GoodEnoughFloor:      DefaultGoodEnoughFloor,
		MaxAttempts:          DefaultMaxAttempts,
		QualityThreshold:     DefaultQualityThreshold,
		FailOpenScore:        DefaultFailOpenScore,
		ScoreSamples:         DefaultScoreSamples,
		RubricVersion:        DefaultRubricVersion,
		MaxPassages:          DefaultMaxPassages,
		Provider:             DefaultProvider,
		OracleTimeoutSeconds: &timeout,
		BatchConcurrency:     DefaultBatchConcurrency,
	}
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' (value %v)", jsonName(fe.StructField()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.RubricFile != "" {
		if _, err := os.Stat(c.RubricFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: rubric file not found: %s", c.RubricFile)
		}
	}
	if c.StrategyFile != "" {
		if _, err := os.Stat(c.StrategyFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: strategy file not found: %s", c.StrategyFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.RubricVersion == "" {
		result.RubricVersion = defaults.RubricVersion
	}
	if result.RubricFile == "" {
		result.RubricFile = defaults.RubricFile
	}
	if result.StrategyFile == "" {
		result.StrategyFile = defaults.StrategyFile
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.Strategies) == 0 {
		result.Strategies = defaults.Strategies
	}

	// Int fields: use default if zero
	mergeInt(&result.TargetScore, defaults.TargetScore)
	mergeInt(&result.MaxIterations, defaults.MaxIterations)
	mergeInt(&result.StagnationWindow, defaults.StagnationWindow)
	mergeInt(&result.MaxAttempts, defaults.MaxAttempts)
	mergeInt(&result.QualityThreshold, defaults.QualityThreshold)
	mergeInt(&result.FailOpenScore, defaults.FailOpenScore)
	mergeInt(&result.ScoreSamples, defaults.ScoreSamples)
	mergeInt(&result.MaxPassages, defaults.MaxPassages)
	mergeInt(&result.RequestsPerMinute, defaults.RequestsPerMinute)
	mergeInt(&result.BatchConcurrency, defaults.BatchConcurrency)

	// Pointer fields: zero is meaningful, only nil is unset
	if result.RegressionMargin == nil {
		result.RegressionMargin = defaults.RegressionMargin
	}
	if result.OracleTimeoutSeconds == nil {
		result.OracleTimeoutSeconds = defaults.OracleTimeoutSeconds
	}

	if result.GoodEnoughFloor == 0 {
		result.GoodEnoughFloor = defaults.GoodEnoughFloor
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Margin returns the regression margin, falling back to the default.
func (c *Config) Margin() int {
	if c.RegressionMargin == nil {
		return DefaultRegressionMargin
	}
	return *c.RegressionMargin
}

// TimeoutSeconds returns the per-call oracle timeout; zero disables it.
func (c *Config) TimeoutSeconds() int {
	if c.OracleTimeoutSeconds == nil {
		return DefaultOracleTimeoutSeconds
	}
	return *c.OracleTimeoutSeconds
}

// ResolveAPIKey returns the configured key or the provider's environment variable.
func (c *Config) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("GEMINI_API_KEY")
	}
}

func mergeInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// jsonName converts a Go field name to its snake_case JSON key.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
