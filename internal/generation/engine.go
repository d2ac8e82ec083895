// Package generation turns built prompts into section content. Two engines
// are provided: a single-call direct engine and a proposer/challenger/judge
// debate engine with a bounded cycle count.
package generation

import (
	"context"
	"fmt"

	"grantwright/internal/config"
	"grantwright/internal/types"
)

// SectionDraft is the generated content for one section.
type SectionDraft struct {
	Content string
	Tokens  *types.TokenUsage
	Model   string
}

// ProposalDraft is the output of one engine run across requested sections.
type ProposalDraft struct {
	Sections map[types.SectionKind]SectionDraft
	Warnings []string
}

// Engine produces section content from grant metadata and context chunks.
// On failure, implementations may return the partial draft alongside the
// error so warnings gathered before the failure are not lost.
type Engine interface {
	GenerateAll(ctx context.Context, grant *types.GrantMetadata, chunks []types.ContextChunk, sections []types.SectionKind) (*ProposalDraft, error)
}

// usageTracker is an optional client capability: clients that parse token
// usage from provider responses expose the usage of their last call.
type usageTracker interface {
	LastUsage() *types.TokenUsage
}

// NewEngine builds an engine from the generation config. Strategy "none"
// returns a nil engine; callers treat that as unconfigured and stub output.
func NewEngine(cfg config.GenerationConfig) (Engine, error) {
	switch cfg.Strategy {
	case config.StrategyNone, "":
		return nil, nil
	case config.StrategyDirect:
		client, err := newClient(cfg.Direct)
		if err != nil {
			return nil, fmt.Errorf("direct engine: %w", err)
		}
		return NewDirectEngine(client, cfg.Direct.Model), nil
	case config.StrategyDebate:
		proposer, err := newClient(cfg.Proposer)
		if err != nil {
			return nil, fmt.Errorf("debate proposer: %w", err)
		}
		challenger, err := newClient(cfg.Challenger)
		if err != nil {
			return nil, fmt.Errorf("debate challenger: %w", err)
		}
		judge, err := newClient(cfg.Judge)
		if err != nil {
			return nil, fmt.Errorf("debate judge: %w", err)
		}
		return NewDebateEngine(proposer, challenger, judge, DebateOptions{
			RoundsPerCycle: cfg.RoundsPerCycle,
			MaxCycles:      cfg.MaxCycles,
			Fallback:       cfg.Fallback,
			Model:          cfg.Challenger.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation strategy: %q", cfg.Strategy)
	}
}

// newClient builds a provider client from config.
func newClient(pc config.ProviderConfig) (types.LLMClient, error) {
	switch pc.Provider {
	case "gemini":
		return NewGeminiClient(pc), nil
	case "anthropic":
		return NewAnthropicClient(pc), nil
	case "openai":
		return NewOpenAIClient(pc), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", pc.Provider)
	}
}

// addUsage accumulates a client's last-call usage into a running total.
func addUsage(total **types.TokenUsage, client types.LLMClient) {
	ut, ok := client.(usageTracker)
	if !ok {
		return
	}
	usage := ut.LastUsage()
	if usage == nil {
		return
	}
	if *total == nil {
		*total = &types.TokenUsage{}
	}
	(*total).Prompt += usage.Prompt
	(*total).Completion += usage.Completion
	(*total).Total += usage.Total
}
