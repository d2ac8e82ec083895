package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"grantwright/internal/logging"
)

// =============================================================================
// EMBEDDING SERVICE ENGINE
// =============================================================================

// ServiceEngine generates embeddings by calling a dedicated embedding service
// over HTTP. The wire contract is POST {url} with {"content": text} returning
// {"embedding": [...], "text": text}. Any non-2xx response or empty vector is
// an error; retrieval treats that as fatal because no query vector means no
// similarity search.
type ServiceEngine struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	dims int // learned from the first successful response
}

// NewServiceEngine creates a new embedding service engine.
func NewServiceEngine(url string) (*ServiceEngine, error) {
	if url == "" {
		return nil, fmt.Errorf("embedding service URL is required")
	}

	return &ServiceEngine{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type serviceEmbedRequest struct {
	Content string `json:"content"`
}

type serviceEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Text      string    `json:"text"`
}

// Embed generates an embedding for a single text.
func (e *ServiceEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(serviceEmbedRequest{Content: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logging.Get(logging.CategoryEmbedding).Error("Embedding service returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result serviceEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service did not return a vector")
	}

	e.mu.Lock()
	e.dims = len(result.Embedding)
	e.mu.Unlock()

	logging.EmbeddingDebug("Service embed: text_len=%d dims=%d", len(text), len(result.Embedding))
	return result.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts. The service has no
// batch endpoint, so texts are embedded sequentially.
func (e *ServiceEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}

	return embeddings, nil
}

// Dimensions returns the dimensionality observed on the first successful
// call, or 0 before any call has completed.
func (e *ServiceEngine) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// Name returns the engine name.
func (e *ServiceEngine) Name() string {
	return fmt.Sprintf("service:%s", e.url)
}
