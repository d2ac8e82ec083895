package retrieval

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantwright/internal/config"
	"grantwright/internal/store"
	"grantwright/internal/types"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig(strategy string) config.RetrievalConfig {
	return config.RetrievalConfig{Strategy: strategy, MatchCount: 20, SampleLimit: 256}
}

func seedGrant(t *testing.T, s *store.Store) string {
	t.Helper()
	id, err := s.CreateGrant(context.Background(), types.GrantMetadata{
		OrganizationName: "Harbor Youth Center",
		ProjectTitle:     "After-School STEM Lab",
	})
	require.NoError(t, err)
	return id
}

// unitVec builds a 2-d unit vector whose cosine against (1, 0) equals x.
func unitVec(x float64) []float32 {
	return []float32{float32(x), float32(math.Sqrt(1 - x*x))}
}

func TestRetrieveEmbedFailureIsFatal(t *testing.T) {
	s := testStore(t)
	r := New(s, &stubEngine{err: errEmbedDown}, testConfig(config.RetrievalStrategyClient))

	_, err := r.Retrieve(context.Background(), "query", "any-grant", 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmbedDown)
}

func TestRetrieveUnknownGrantIsSilent(t *testing.T) {
	s := testStore(t)
	r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(config.RetrievalStrategyClient))

	gc, err := r.Retrieve(context.Background(), "query", "no-such-grant", 5, nil)
	require.NoError(t, err)
	assert.Nil(t, gc.Grant)
	assert.NotContains(t, gc.Warnings, WarnGrantLookupFailed)
	// Unknown grant has no corpus either.
	assert.Contains(t, gc.Warnings, WarnNoChunks)
}

func TestRetrieveStableTieOrdering(t *testing.T) {
	for _, strategy := range []string{config.RetrievalStrategyClient, config.RetrievalStrategyStore} {
		t.Run(strategy, func(t *testing.T) {
			s := testStore(t)
			grantID := seedGrant(t, s)
			ctx := context.Background()

			// Two chunks tie at 0.91 against the query; one scores 0.40.
			// Insertion order must break the tie.
			for i, cos := range []float64{0.91, 0.40, 0.91} {
				_, err := s.InsertEmbedding(ctx, store.EmbeddingRecord{
					Content:   fmt.Sprintf("chunk-%d", i+1),
					Embedding: unitVec(cos),
					GrantID:   grantID,
				})
				require.NoError(t, err)
			}

			r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(strategy))
			gc, err := r.Retrieve(ctx, "query", grantID, 10, nil)
			require.NoError(t, err)
			require.Len(t, gc.Chunks, 3)

			assert.Equal(t, "chunk-1", gc.Chunks[0].Content)
			assert.Equal(t, "chunk-3", gc.Chunks[1].Content)
			assert.Equal(t, "chunk-2", gc.Chunks[2].Content)
			assert.InDelta(t, 0.91, *gc.Chunks[0].RelevanceScore, 0.001)
			assert.InDelta(t, 0.40, *gc.Chunks[2].RelevanceScore, 0.001)
		})
	}
}

func TestRetrieveMalformedVectorKeptAtZero(t *testing.T) {
	for _, strategy := range []string{config.RetrievalStrategyClient, config.RetrievalStrategyStore} {
		t.Run(strategy, func(t *testing.T) {
			s := testStore(t)
			grantID := seedGrant(t, s)
			ctx := context.Background()

			_, err := s.InsertEmbedding(ctx, store.EmbeddingRecord{
				Content:   "good",
				Embedding: []float32{1, 0},
				GrantID:   grantID,
			})
			require.NoError(t, err)
			// Wrong dimensionality relative to the query vector.
			badID, err := s.InsertEmbedding(ctx, store.EmbeddingRecord{
				Content:   "bad-dims",
				Embedding: []float32{1, 0, 0, 0},
				GrantID:   grantID,
			})
			require.NoError(t, err)

			r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(strategy))
			gc, err := r.Retrieve(ctx, "query", grantID, 10, nil)
			require.NoError(t, err)

			require.Len(t, gc.Chunks, 2, "malformed chunk must be kept")
			assert.Equal(t, "good", gc.Chunks[0].Content)
			assert.Equal(t, "bad-dims", gc.Chunks[1].Content)
			assert.Equal(t, 0.0, *gc.Chunks[1].RelevanceScore)
			assert.Contains(t, gc.Warnings, malformedWarning(badID))
		})
	}
}

func TestRetrieveOverridesPrepended(t *testing.T) {
	s := testStore(t)
	grantID := seedGrant(t, s)
	ctx := context.Background()

	_, err := s.InsertEmbedding(ctx, store.EmbeddingRecord{
		Content:   "stored",
		Embedding: []float32{1, 0},
		GrantID:   grantID,
	})
	require.NoError(t, err)

	overrides := []types.ContextChunk{
		{Content: "manual context A"},
		{ID: "custom-id", Content: "manual context B"},
	}

	r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(config.RetrievalStrategyClient))
	gc, err := r.Retrieve(ctx, "query", grantID, 10, overrides)
	require.NoError(t, err)

	require.Len(t, gc.Chunks, 3)
	assert.Equal(t, "override-1", gc.Chunks[0].ID)
	assert.Equal(t, types.SourceOverride, gc.Chunks[0].SourceType)
	assert.Equal(t, "custom-id", gc.Chunks[1].ID)
	assert.Equal(t, "stored", gc.Chunks[2].Content)
	assert.Contains(t, gc.Warnings, WarnOverrideChunks)
}

func TestRetrieveEmptyCorpusWarns(t *testing.T) {
	s := testStore(t)
	grantID := seedGrant(t, s)

	r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(config.RetrievalStrategyStore))
	gc, err := r.Retrieve(context.Background(), "query", grantID, 10, nil)
	require.NoError(t, err)

	assert.Empty(t, gc.Chunks)
	assert.Contains(t, gc.Warnings, WarnNoChunks)
	require.NotNil(t, gc.Grant)
	assert.Equal(t, "Harbor Youth Center", gc.Grant.OrganizationName)
}

func TestRetrieveTruncatesToMaxChunks(t *testing.T) {
	s := testStore(t)
	grantID := seedGrant(t, s)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.InsertEmbedding(ctx, store.EmbeddingRecord{
			Content:   fmt.Sprintf("chunk-%d", i),
			Embedding: unitVec(0.5 + float64(i)*0.05),
			GrantID:   grantID,
		})
		require.NoError(t, err)
	}

	for _, strategy := range []string{config.RetrievalStrategyClient, config.RetrievalStrategyStore} {
		r := New(s, &stubEngine{vec: []float32{1, 0}}, testConfig(strategy))
		gc, err := r.Retrieve(ctx, "query", grantID, 2, nil)
		require.NoError(t, err)
		assert.Len(t, gc.Chunks, 2, "strategy %s", strategy)
		// Highest-scoring chunk was inserted last.
		assert.Equal(t, "chunk-4", gc.Chunks[0].Content)
	}
}
