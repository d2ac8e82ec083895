package types

import (
	"context"
	"time"
)

// LLMClient is the single capability every model provider exposes to the
// pipeline: given a prompt, return text. Concrete providers (Gemini,
// Anthropic, OpenAI) are interchangeable behind this interface; debate roles
// and the direct strategy depend only on it.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Clock abstracts wall-clock time so orchestrator timing is testable.
type Clock interface {
	Now() time.Time
}
