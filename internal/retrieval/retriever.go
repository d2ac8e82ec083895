// Package retrieval assembles the generation context for a grant: it embeds
// the user query, ranks the grant's stored chunks by cosine similarity, and
// folds in grant metadata and caller-supplied override chunks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"grantwright/internal/config"
	"grantwright/internal/embedding"
	"grantwright/internal/logging"
	"grantwright/internal/store"
	"grantwright/internal/types"
)

// Warning strings surfaced on the generation context. Callers display these
// verbatim, so they stay fixed.
const (
	WarnGrantLookupFailed = "Failed to load grant metadata."
	WarnOverrideChunks    = "Using override context chunks (development mode)."
	WarnNoChunks          = "No context chunks available for this grant."
)

// Retriever ranks stored context chunks against a query embedding.
type Retriever struct {
	store       *store.Store
	engine      embedding.Engine
	strategy    string
	matchCount  int
	sampleLimit int
}

// New builds a Retriever from the retrieval config.
func New(st *store.Store, engine embedding.Engine, cfg config.RetrievalConfig) *Retriever {
	matchCount := cfg.MatchCount
	if matchCount <= 0 {
		matchCount = 20
	}
	sampleLimit := cfg.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = 256
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = config.RetrievalStrategyStore
	}
	return &Retriever{
		store:       st,
		engine:      engine,
		strategy:    strategy,
		matchCount:  matchCount,
		sampleLimit: sampleLimit,
	}
}

// Retrieve builds the generation context for a query against a grant's chunk
// corpus. A query embedding failure is fatal; grant lookup failures, malformed
// stored vectors, and an empty corpus degrade to warnings.
//
// Override chunks are always prepended to the ranked results and never count
// against maxChunks.
func (r *Retriever) Retrieve(ctx context.Context, query, grantID string, maxChunks int, overrides []types.ContextChunk) (*types.GenerationContext, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()

	gc := &types.GenerationContext{}

	if len(overrides) > 0 {
		gc.Warnings = append(gc.Warnings, WarnOverrideChunks)
		for i, o := range overrides {
			if o.ID == "" {
				o.ID = fmt.Sprintf("override-%d", i+1)
			}
			if o.SourceType == "" {
				o.SourceType = types.SourceOverride
			}
			gc.Chunks = append(gc.Chunks, o)
		}
		logging.Retrieval("Prepended %d override chunks", len(overrides))
	}

	if grantID != "" {
		grant, err := r.store.GetGrant(ctx, grantID)
		switch {
		case err == nil:
			gc.Grant = grant
		case errors.Is(err, store.ErrNotFound):
			// Unknown grant id is not an anomaly worth surfacing.
			logging.RetrievalDebug("Grant %s not found", grantID)
		default:
			logging.Retrieval("Grant lookup failed for %s: %v", grantID, err)
			gc.Warnings = append(gc.Warnings, WarnGrantLookupFailed)
		}
	}

	if maxChunks <= 0 {
		maxChunks = r.matchCount
	}

	queryVec, err := r.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if grantID != "" {
		var ranked []types.ContextChunk
		var warnings []string
		switch r.strategy {
		case config.RetrievalStrategyClient:
			ranked, warnings, err = r.rankClientSide(ctx, queryVec, grantID, maxChunks)
		default:
			ranked, warnings, err = r.rankStoreSide(ctx, queryVec, grantID, maxChunks)
		}
		if err != nil {
			return nil, err
		}
		gc.Chunks = append(gc.Chunks, ranked...)
		gc.Warnings = append(gc.Warnings, warnings...)
	}

	if len(gc.Chunks) == 0 {
		gc.Warnings = append(gc.Warnings, WarnNoChunks)
	}

	logging.Retrieval("Retrieved %d chunks for grant %q (%d warnings)", len(gc.Chunks), grantID, len(gc.Warnings))
	return gc, nil
}

// rankStoreSide delegates ranking to SQLite. Rows the store could not score
// come back with a nil similarity and are kept at score zero.
func (r *Retriever) rankStoreSide(ctx context.Context, queryVec []float32, grantID string, maxChunks int) ([]types.ContextChunk, []string, error) {
	rows, err := r.store.MatchChunks(ctx, queryVec, grantID, maxChunks)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to match chunks: %w", err)
	}

	var chunks []types.ContextChunk
	var warnings []string
	for _, row := range rows {
		score := 0.0
		if row.Similarity != nil {
			score = *row.Similarity
		} else {
			warnings = append(warnings, malformedWarning(row.ID))
		}
		chunks = append(chunks, chunkFromRow(row.ID, row.Content, row.DocumentID, score))
	}
	return chunks, warnings, nil
}

// rankClientSide bulk-fetches raw rows and scores them in-process.
func (r *Retriever) rankClientSide(ctx context.Context, queryVec []float32, grantID string, maxChunks int) ([]types.ContextChunk, []string, error) {
	rows, err := r.store.FetchChunkRows(ctx, grantID, r.sampleLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch chunk rows: %w", err)
	}

	var chunks []types.ContextChunk
	var warnings []string
	for _, row := range rows {
		score, ok := scoreRow(queryVec, row.Embedding)
		if !ok {
			warnings = append(warnings, malformedWarning(row.ID))
		}
		chunks = append(chunks, chunkFromRow(row.ID, row.Content, row.DocumentID, score))
	}

	// Stable: equal scores keep storage order.
	sort.SliceStable(chunks, func(i, j int) bool {
		return *chunks[i].RelevanceScore > *chunks[j].RelevanceScore
	})
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	return chunks, warnings, nil
}

// scoreRow decodes a stored vector and scores it against the query. Any
// decode or dimension problem yields (0, false); the chunk is kept.
func scoreRow(queryVec []float32, blob []byte) (float64, bool) {
	if len(blob) == 0 {
		return 0, false
	}
	vec, err := store.DecodeVector(blob)
	if err != nil {
		return 0, false
	}
	score, err := embedding.CosineSimilarity(queryVec, vec)
	if err != nil {
		return 0, false
	}
	return score, true
}

func chunkFromRow(id, content, documentID string, score float64) types.ContextChunk {
	sourceType := types.SourceScraped
	if documentID != "" {
		sourceType = types.SourceUploaded
	}
	s := score
	return types.ContextChunk{
		ID:             id,
		Content:        content,
		SourceType:     sourceType,
		SourceRef:      documentID,
		RelevanceScore: &s,
	}
}

func malformedWarning(id string) string {
	return fmt.Sprintf("Context chunk %s has a malformed stored embedding; treating similarity as 0.", id)
}
