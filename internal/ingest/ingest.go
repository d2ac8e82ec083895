// Package ingest turns source documents into stored, embedded context chunks.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grantwright/internal/embedding"
	"grantwright/internal/logging"
	"grantwright/internal/store"
)

// DefaultMaxChunkSize bounds chunk length in bytes. Embedding models have
// input limits, and retrieval works better on focused chunks.
const DefaultMaxChunkSize = 8000

// Ingestor chunks, embeds, and stores document text.
type Ingestor struct {
	store        *store.Store
	engine       embedding.Engine
	maxChunkSize int
}

// New builds an Ingestor. maxChunkSize <= 0 selects the default.
func New(st *store.Store, engine embedding.Engine, maxChunkSize int) *Ingestor {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &Ingestor{store: st, engine: engine, maxChunkSize: maxChunkSize}
}

// IngestFile reads a text or markdown file and ingests its content.
// Returns the uploaded document id and the number of chunks stored.
func (in *Ingestor) IngestFile(ctx context.Context, path, grantID string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read file: %w", err)
	}
	return in.IngestText(ctx, string(data), filepath.Base(path), grantID)
}

// IngestText stores a document row, chunks the text on sentence boundaries,
// embeds each chunk, and stores the embedding rows. Any embedding failure
// aborts the ingestion: a chunk without a vector cannot be retrieved.
func (in *Ingestor) IngestText(ctx context.Context, text, fileName, grantID string) (string, int, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "IngestText")
	defer timer.Stop()

	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("document %s has no text content", fileName)
	}

	docID, err := in.store.InsertDocument(ctx, store.Document{
		FileName:      fileName,
		FileType:      strings.TrimPrefix(filepath.Ext(fileName), "."),
		ExtractedText: text,
		GrantID:       grantID,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to store document: %w", err)
	}

	chunks := ChunkText(text, in.maxChunkSize)
	logging.Ingest("Ingesting %s: %d chunk(s)", fileName, len(chunks))

	vectors, err := in.engine.EmbedBatch(ctx, chunks)
	if err != nil {
		return "", 0, fmt.Errorf("failed to embed document chunks: %w", err)
	}

	for i, chunk := range chunks {
		if _, err := in.store.InsertEmbedding(ctx, store.EmbeddingRecord{
			Content:    chunk,
			Embedding:  vectors[i],
			GrantID:    grantID,
			DocumentID: docID,
		}); err != nil {
			return "", 0, fmt.Errorf("failed to store embedding %d of %d: %w", i+1, len(chunks), err)
		}
		logging.IngestDebug("Stored embedding %d/%d for %s", i+1, len(chunks), fileName)
	}

	return docID, len(chunks), nil
}

// ChunkText splits text into chunks of at most maxChunkSize bytes, packing
// whole sentences. Text at or under the limit comes back as a single chunk;
// a single sentence over the limit is kept whole rather than split mid-word.
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)
	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences cuts text after runs of sentence terminators. Trailing text
// without a terminator forms a final sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			for i < len(text) && (text[i] == '.' || text[i] == '!' || text[i] == '?') {
				i++
			}
			sentences = append(sentences, text[start:i])
			start = i
			continue
		}
		i++
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
