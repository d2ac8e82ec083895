package config

import "time"

// Generation strategies.
const (
	StrategyDirect = "direct"
	StrategyDebate = "debate"
	StrategyNone   = "none"
)

// Exhaustion fallback policies for the debate engine.
const (
	FallbackBestDraft = "best_draft"
	FallbackError     = "error"
)

// GenerationConfig configures the generation engine.
type GenerationConfig struct {
	// Strategy: "direct", "debate", or "none" (stubbed output)
	Strategy string `json:"strategy"`

	// Debate shape
	RoundsPerCycle int    `json:"rounds_per_cycle"` // proposer/challenger rounds per cycle
	MaxCycles      int    `json:"max_cycles"`       // judge evaluations before fallback
	Fallback       string `json:"fallback"`         // "best_draft" or "error"

	// Provider for the direct strategy
	Direct ProviderConfig `json:"direct"`

	// Providers for the debate roles
	Proposer   ProviderConfig `json:"proposer"`
	Challenger ProviderConfig `json:"challenger"`
	Judge      ProviderConfig `json:"judge"`
}

// ProviderConfig configures one model provider endpoint.
type ProviderConfig struct {
	Provider string `json:"provider"` // gemini, anthropic, openai
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	Timeout  string `json:"timeout"`
}

// GetTimeout returns the provider timeout as a duration.
func (p ProviderConfig) GetTimeout() time.Duration {
	return parseTimeout(p.Timeout, 2*time.Minute)
}

// DefaultGenerationConfig returns the default generation configuration:
// the debate strategy with Gemini proposer/challenger and an Anthropic judge.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Strategy:       StrategyDebate,
		RoundsPerCycle: 3,
		MaxCycles:      3,
		Fallback:       FallbackBestDraft,

		Direct: ProviderConfig{
			Provider: "openai",
			Model:    "gpt-4.1-mini",
		},
		Proposer: ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
		},
		Challenger: ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash",
		},
		Judge: ProviderConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
		},
	}
}
