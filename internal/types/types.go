// Package types defines the shared domain types for the grant generation
// pipeline: context chunks, grant metadata, section results, and the
// capability interfaces the orchestrators depend on.
package types

import "time"

// =============================================================================
// SECTIONS
// =============================================================================

// SectionKind identifies one named subdivision of the final proposal document.
type SectionKind string

const (
	SectionExecutiveSummary   SectionKind = "executive_summary"
	SectionNeedsStatement     SectionKind = "needs_statement"
	SectionProgramDescription SectionKind = "program_description"
	SectionBudgetOverview     SectionKind = "budget_overview"
	SectionCustom             SectionKind = "custom"
)

// CanonicalSections is the fixed assembly order for proposal documents.
// Callers may request a subset, but assembly always follows this order.
var CanonicalSections = []SectionKind{
	SectionExecutiveSummary,
	SectionNeedsStatement,
	SectionProgramDescription,
	SectionBudgetOverview,
}

// IsKnown reports whether the kind is one of the recognized section kinds.
func (s SectionKind) IsKnown() bool {
	switch s {
	case SectionExecutiveSummary, SectionNeedsStatement,
		SectionProgramDescription, SectionBudgetOverview, SectionCustom:
		return true
	}
	return false
}

// =============================================================================
// CONTEXT
// =============================================================================

// Chunk source types.
const (
	SourceUploaded = "uploaded"
	SourceScraped  = "scraped"
	SourceOverride = "override"
)

// ContextChunk is one retrievable unit of source text. Chunks are immutable
// once retrieved; they are owned by the retrieval result that produced them
// and must never be mutated downstream.
type ContextChunk struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	SourceType     string   `json:"source_type"`
	SourceRef      string   `json:"source_ref,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

// GrantMetadata is a read-only snapshot of one grant record, fetched once per
// generation request. The pipeline never writes to it.
type GrantMetadata struct {
	ID                 string   `json:"id"`
	OrganizationName   string   `json:"organization_name,omitempty"`
	ProjectTitle       string   `json:"project_title,omitempty"`
	GrantorName        string   `json:"grantor_name,omitempty"`
	FundingAmount      *float64 `json:"funding_amount,omitempty"`
	ProjectDescription string   `json:"project_description,omitempty"`
	StructureType      string   `json:"structure_type,omitempty"`
}

// GenerationContext aggregates everything retrieval produced for one request.
// Warnings accumulate monotonically: components only append, never remove.
type GenerationContext struct {
	Grant    *GrantMetadata `json:"grant"`
	Chunks   []ContextChunk `json:"chunks"`
	Warnings []string       `json:"warnings"`
}

// ChunkIDs returns the ids of the retrieved chunks in order.
func (c *GenerationContext) ChunkIDs() []string {
	ids := make([]string, len(c.Chunks))
	for i, chunk := range c.Chunks {
		ids[i] = chunk.ID
	}
	return ids
}

// =============================================================================
// RESULTS
// =============================================================================

// Section result statuses.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// TokenUsage records token counts reported by a model provider.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// SectionError is a normalized error captured at the section boundary.
type SectionError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SectionMeta records wall-clock timing for one section run.
type SectionMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// SectionResult is the outcome of generating one section. It is created once
// per section per request and is immutable after the section orchestrator
// returns it; the proposal orchestrator only reads it.
//
// ContextRefs is always a subset of the chunk ids retrieval produced for the
// prompt that fed this section.
type SectionResult struct {
	Name        SectionKind   `json:"name"`
	Status      string        `json:"status"`
	Content     *string       `json:"content"`
	TokensUsed  *TokenUsage   `json:"tokens_used,omitempty"`
	ContextRefs []string      `json:"context_refs"`
	Warnings    []string      `json:"warnings"`
	Err         *SectionError `json:"error"`
	Meta        SectionMeta   `json:"meta"`
}
