// Package llm provides provider-neutral LLM clients used by the evaluation,
// generation and validation oracles.
package llm

import "fmt"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap judgments: candidate validation
	TierLite ModelTier = "lite"
	// TierStandard is for structured scoring: rubric evaluation
	TierStandard ModelTier = "standard"
	// TierAdvanced is for writing: candidate generation and suggestions
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds the model configuration for one provider
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Temperatures overrides the sampling temperature per tier.
	Temperatures map[ModelTier]float32
	// MaxTokens caps response length for providers that require it.
	MaxTokens int
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperatures: defaultTemperatures(),
		MaxTokens:    8192,
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-sonnet-4-5",
			TierAdvanced: "claude-sonnet-4-5",
		},
		Temperatures: defaultTemperatures(),
		MaxTokens:    4096,
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		},
		Temperatures: defaultTemperatures(),
		MaxTokens:    4096,
	}
}

// ConfigFor returns the default configuration of a provider.
func ConfigFor(p Provider) (*Config, error) {
	switch p {
	case ProviderGemini, "":
		return DefaultGeminiConfig(), nil
	case ProviderAnthropic:
		return DefaultAnthropicConfig(), nil
	case ProviderOpenAI:
		return DefaultOpenAIConfig(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", p)
	}
}

// Scoring and validation run cold; writing runs warmer.
func defaultTemperatures() map[ModelTier]float32 {
	return map[ModelTier]float32{
		TierLite:     0.1,
		TierStandard: 0.1,
		TierAdvanced: 0.7,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// Temperature returns the sampling temperature for a tier.
func (c *Config) Temperature(tier ModelTier) float32 {
	if t, ok := c.Temperatures[tier]; ok {
		return t
	}
	return 0.1
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := c.clone()
	out.Models[tier] = model
	return out
}

// WithAllModels returns a new Config that uses model for every tier.
func (c *Config) WithAllModels(model string) *Config {
	out := c.clone()
	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		out.Models[tier] = model
	}
	return out
}

func (c *Config) clone() *Config {
	out := &Config{
		Provider:     c.Provider,
		Models:       make(map[ModelTier]string, len(c.Models)),
		Temperatures: make(map[ModelTier]float32, len(c.Temperatures)),
		MaxTokens:    c.MaxTokens,
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	for k, v := range c.Temperatures {
		out.Temperatures[k] = v
	}
	return out
}
