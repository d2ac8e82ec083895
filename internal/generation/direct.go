package generation

import (
	"context"
	"fmt"

	"grantwright/internal/logging"
	"grantwright/internal/prompt"
	"grantwright/internal/types"
)

// DirectEngine generates each section with a single completion call.
type DirectEngine struct {
	client types.LLMClient
	model  string
}

// NewDirectEngine wraps a single provider client.
func NewDirectEngine(client types.LLMClient, model string) *DirectEngine {
	return &DirectEngine{client: client, model: model}
}

// GenerateAll produces content for each requested section in order.
func (e *DirectEngine) GenerateAll(ctx context.Context, grant *types.GrantMetadata, chunks []types.ContextChunk, sections []types.SectionKind) (*ProposalDraft, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "DirectGenerateAll")
	defer timer.Stop()

	gc := &types.GenerationContext{Grant: grant, Chunks: chunks}
	draft := &ProposalDraft{Sections: make(map[types.SectionKind]SectionDraft, len(sections))}

	for _, section := range sections {
		built := prompt.Build(gc, section)
		draft.Warnings = append(draft.Warnings, built.Warnings...)

		content, err := e.client.Complete(ctx, built.Prompt)
		if err != nil {
			return draft, fmt.Errorf("failed to generate section %q: %w", section, err)
		}

		var tokens *types.TokenUsage
		addUsage(&tokens, e.client)
		draft.Sections[section] = SectionDraft{Content: content, Tokens: tokens, Model: e.model}
		logging.Generation("Direct: generated section %q (%d chars)", section, len(content))
	}

	return draft, nil
}
