// Package pipeline orchestrates proposal generation: retrieval, prompt
// assembly, generation, and persistence, one section at a time.
package pipeline

import (
	"context"
	"time"

	"grantwright/internal/generation"
	"grantwright/internal/store"
	"grantwright/internal/types"
)

// SectionStore is the slice of the store the pipeline writes to.
type SectionStore interface {
	CreateGrant(ctx context.Context, g types.GrantMetadata) (string, error)
	InsertSection(ctx context.Context, rec store.SectionRecord) (string, error)
	InsertGenerationLog(ctx context.Context, rec store.GenerationLog) error
}

// ContextRetriever builds the generation context for a section run.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query, grantID string, maxChunks int, overrides []types.ContextChunk) (*types.GenerationContext, error)
}

// Deps bundles everything a section run needs. Dependencies are passed
// explicitly; nothing is resolved ambiently.
type Deps struct {
	Store      SectionStore
	Retriever  ContextRetriever
	Engine     generation.Engine // nil means unconfigured: sections get stubbed content
	Clock      types.Clock       // nil means wall clock
	Query      string
	MatchCount int
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (d Deps) clock() types.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return systemClock{}
}
