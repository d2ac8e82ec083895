package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grantwright/internal/generation"
	"grantwright/internal/logging"
	"grantwright/internal/prompt"
	"grantwright/internal/store"
	"grantwright/internal/types"
)

// StubContent replaces generated text when no engine is available.
const StubContent = "[Stubbed response] The generation engine has not been configured. Configure a provider to generate real content."

// Warnings the section run can accumulate.
const (
	WarnEngineNotConfigured = "Generation engine not configured; returning stubbed content."
	WarnGenerationFailed    = "Generation failed; returning stubbed content."
	WarnPersistSection      = "Failed to persist proposal section."
	WarnPersistLog          = "Failed to persist generation log."
)

// GenerateSection runs the full pipeline for one section. It never returns an
// error or panics: any failure is normalized into a SectionResult with status
// "error". Recoverable problems degrade to warnings on a success result.
func GenerateSection(ctx context.Context, deps Deps, grantID string, section types.SectionKind, overrides []types.ContextChunk) types.SectionResult {
	result, _ := generateSection(ctx, deps, grantID, section, overrides)
	return result
}

// generateSection additionally returns the retrieval context so the proposal
// orchestrator can surface the chunks it worked from.
func generateSection(ctx context.Context, deps Deps, grantID string, section types.SectionKind, overrides []types.ContextChunk) (types.SectionResult, *types.GenerationContext) {
	timer := logging.StartTimer(logging.CategoryPipeline, "GenerateSection")
	defer timer.Stop()

	clock := deps.clock()
	startedAt := clock.Now()

	var warnings []string
	var gc *types.GenerationContext

	result, err := func() (res types.SectionResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logging.Pipeline("Section %q panicked: %v", section, r)
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		retrievalStart := time.Now()
		gc, err = deps.Retriever.Retrieve(ctx, deps.Query, grantID, deps.MatchCount, overrides)
		retrievalMs := time.Since(retrievalStart).Milliseconds()
		if err != nil {
			return types.SectionResult{}, fmt.Errorf("retrieval failed: %w", err)
		}
		warnings = append(warnings, gc.Warnings...)
		contextRefs := gc.ChunkIDs()

		var (
			content string
			tokens  *types.TokenUsage
			model   string
		)
		generationStart := time.Now()
		switch {
		case deps.Engine == nil:
			built := prompt.Build(&types.GenerationContext{Grant: gc.Grant, Chunks: gc.Chunks}, section)
			warnings = append(warnings, built.Warnings...)
			warnings = append(warnings, WarnEngineNotConfigured)
			content = StubContent
		default:
			draft, genErr := deps.Engine.GenerateAll(ctx, gc.Grant, gc.Chunks, []types.SectionKind{section})
			if draft != nil {
				warnings = append(warnings, draft.Warnings...)
			}
			var exhausted *generation.GenerationExhaustedError
			if errors.As(genErr, &exhausted) {
				return types.SectionResult{}, genErr
			}
			if genErr != nil {
				logging.Pipeline("Section %q generation failed: %v", section, genErr)
				warnings = append(warnings, WarnGenerationFailed)
				content = StubContent
			} else {
				d := draft.Sections[section]
				content = d.Content
				tokens = d.Tokens
				model = d.Model
			}
		}
		generationMs := time.Since(generationStart).Milliseconds()

		totalTokens := 0
		if tokens != nil {
			totalTokens = tokens.Total
		}
		if _, persistErr := deps.Store.InsertSection(ctx, store.SectionRecord{
			GrantID:     grantID,
			SectionName: string(section),
			Content:     content,
			TokensUsed:  totalTokens,
			ModelUsed:   model,
		}); persistErr != nil {
			logging.Pipeline("Section %q persistence failed: %v", section, persistErr)
			warnings = append(warnings, WarnPersistSection)
		}
		if persistErr := deps.Store.InsertGenerationLog(ctx, store.GenerationLog{
			GrantID:          grantID,
			SectionName:      string(section),
			RetrievalTimeMs:  retrievalMs,
			GenerationTimeMs: generationMs,
			ContextSources:   contextRefs,
		}); persistErr != nil {
			logging.Pipeline("Section %q telemetry persistence failed: %v", section, persistErr)
			warnings = append(warnings, WarnPersistLog)
		}

		completedAt := clock.Now()
		return types.SectionResult{
			Name:        section,
			Status:      types.StatusSuccess,
			Content:     &content,
			TokensUsed:  tokens,
			ContextRefs: contextRefs,
			Warnings:    warnings,
			Meta:        buildMeta(startedAt, completedAt),
		}, nil
	}()

	if err != nil {
		refs := []string{}
		if gc != nil {
			refs = gc.ChunkIDs()
		}
		completedAt := clock.Now()
		return types.SectionResult{
			Name:        section,
			Status:      types.StatusError,
			ContextRefs: refs,
			Warnings:    warnings,
			Err: &types.SectionError{
				Message: err.Error(),
				Type:    errorType(err),
			},
			Meta: buildMeta(startedAt, completedAt),
		}, gc
	}
	return result, gc
}

func buildMeta(startedAt, completedAt time.Time) types.SectionMeta {
	return types.SectionMeta{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
	}
}

func errorType(err error) string {
	var exhausted *generation.GenerationExhaustedError
	if errors.As(err, &exhausted) {
		return "GenerationExhaustedError"
	}
	return "Error"
}
