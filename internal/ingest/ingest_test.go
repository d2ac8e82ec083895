package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"grantwright/internal/store"
	"grantwright/internal/types"
)

type stubEngine struct {
	err error
}

func (e *stubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func (e *stubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := e.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEngine) Dimensions() int { return 3 }
func (e *stubEngine) Name() string    { return "stub" }

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("One sentence. Another sentence.", 100)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunkTextSplitsOnSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("This is a sentence of some length. ", 20)
	chunks := ChunkText(text, 100)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	var total int
	for i, chunk := range chunks {
		total += len(chunk)
		if len(chunk) > 100 {
			t.Errorf("Chunk %d exceeds limit: %d bytes", i, len(chunk))
		}
		if !strings.HasSuffix(strings.TrimRight(chunk, " "), ".") {
			t.Errorf("Chunk %d does not end on a sentence boundary: %q", i, chunk)
		}
	}
	if total != len(text) {
		t.Errorf("Chunks lost text: %d of %d bytes", total, len(text))
	}
}

func TestChunkTextOversizedSentenceKeptWhole(t *testing.T) {
	text := strings.Repeat("word ", 50) + "end." + " Short one."
	chunks := ChunkText(text, 100)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "end.") {
		t.Errorf("Oversized sentence was split: %q", chunks[0])
	}
}

func TestIngestTextStoresDocumentAndEmbeddings(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	grantID, err := s.CreateGrant(ctx, types.GrantMetadata{OrganizationName: "Harbor Youth Center"})
	if err != nil {
		t.Fatalf("Failed to create grant: %v", err)
	}

	in := New(s, &stubEngine{}, 50)
	text := "First sentence here. Second sentence follows. Third one closes it out."
	docID, count, err := in.IngestText(ctx, text, "report.txt", grantID)
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if docID == "" {
		t.Fatal("Empty document id")
	}
	if count < 2 {
		t.Errorf("Expected multiple chunks for 70 bytes at limit 50, got %d", count)
	}

	rows, err := s.FetchChunkRows(ctx, grantID, 10)
	if err != nil {
		t.Fatalf("FetchChunkRows failed: %v", err)
	}
	if len(rows) != count {
		t.Errorf("Stored %d rows, expected %d", len(rows), count)
	}
	for _, row := range rows {
		if row.DocumentID != docID {
			t.Errorf("Row %s not linked to document %s", row.ID, docID)
		}
		if len(row.Embedding) == 0 {
			t.Errorf("Row %s missing embedding", row.ID)
		}
	}
}

func TestIngestTextEmbeddingFailureIsFatal(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	in := New(s, &stubEngine{err: errors.New("service down")}, 0)
	if _, _, err := in.IngestText(context.Background(), "Some text.", "doc.txt", ""); err == nil {
		t.Fatal("Expected error when embedding fails")
	}
}

func TestIngestTextRejectsEmptyText(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	in := New(s, &stubEngine{}, 0)
	if _, _, err := in.IngestText(context.Background(), "   \n", "empty.txt", ""); err == nil {
		t.Fatal("Expected error for empty document")
	}
}
