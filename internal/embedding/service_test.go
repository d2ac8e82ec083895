package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServiceEngine_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req serviceEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Content != "robotics program" {
			t.Errorf("unexpected content: %q", req.Content)
		}
		json.NewEncoder(w).Encode(serviceEmbedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
			Text:      req.Content,
		})
	}))
	defer server.Close()

	engine, err := NewServiceEngine(server.URL)
	if err != nil {
		t.Fatalf("NewServiceEngine failed: %v", err)
	}

	vec, err := engine.Embed(context.Background(), "robotics program")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dims, got %d", len(vec))
	}
	if engine.Dimensions() != 3 {
		t.Errorf("expected learned dimensions 3, got %d", engine.Dimensions())
	}
}

func TestServiceEngine_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine, _ := NewServiceEngine(server.URL)
	if _, err := engine.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestServiceEngine_EmptyVectorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(serviceEmbedResponse{Embedding: nil, Text: "x"})
	}))
	defer server.Close()

	engine, _ := NewServiceEngine(server.URL)
	if _, err := engine.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on empty embedding vector")
	}
}

func TestServiceEngine_EmbedBatchSequential(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(serviceEmbedResponse{
			Embedding: []float32{float32(calls)},
		})
	}))
	defer server.Close()

	engine, _ := NewServiceEngine(server.URL)
	results, err := engine.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if calls != 3 {
		t.Errorf("expected 3 service calls, got %d", calls)
	}
}

func TestServiceEngine_RequiresURL(t *testing.T) {
	if _, err := NewServiceEngine(""); err == nil {
		t.Fatal("expected error for missing URL")
	}
}
