package retrieval

import (
	"context"
	"errors"
)

// stubEngine returns a fixed query vector, or a fixed error.
type stubEngine struct {
	vec []float32
	err error
}

func (e *stubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
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

func (e *stubEngine) Dimensions() int { return len(e.vec) }
func (e *stubEngine) Name() string    { return "stub" }

var errEmbedDown = errors.New("embedding service unavailable")
