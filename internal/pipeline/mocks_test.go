package pipeline

import (
	"context"
	"errors"
	"time"

	"grantwright/internal/generation"
	"grantwright/internal/store"
	"grantwright/internal/types"
)

// fakeRetriever returns a canned context or error.
type fakeRetriever struct {
	gc    *types.GenerationContext
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query, grantID string, maxChunks int, overrides []types.ContextChunk) (*types.GenerationContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.gc == nil {
		return &types.GenerationContext{}, nil
	}
	// Fresh copy each call so accumulated warnings don't leak between runs.
	cp := *f.gc
	cp.Warnings = append([]string{}, f.gc.Warnings...)
	return &cp, nil
}

// fakeStore records writes and can be told to fail them.
type fakeStore struct {
	failCreateGrant bool
	failSection     bool
	failLog         bool

	createdGrants int
	sections      []store.SectionRecord
	logs          []store.GenerationLog
}

func (f *fakeStore) CreateGrant(ctx context.Context, g types.GrantMetadata) (string, error) {
	if f.failCreateGrant {
		return "", errors.New("create grant failed")
	}
	f.createdGrants++
	return "grant-created", nil
}

func (f *fakeStore) InsertSection(ctx context.Context, rec store.SectionRecord) (string, error) {
	if f.failSection {
		return "", errors.New("section insert failed")
	}
	f.sections = append(f.sections, rec)
	return "section-id", nil
}

func (f *fakeStore) InsertGenerationLog(ctx context.Context, rec store.GenerationLog) error {
	if f.failLog {
		return errors.New("log insert failed")
	}
	f.logs = append(f.logs, rec)
	return nil
}

// fakeEngine returns fixed content per section, or fails, or panics.
type fakeEngine struct {
	content  string
	warnings []string
	err      error
	panics   bool
	calls    int
}

func (f *fakeEngine) GenerateAll(ctx context.Context, grant *types.GrantMetadata, chunks []types.ContextChunk, sections []types.SectionKind) (*generation.ProposalDraft, error) {
	f.calls++
	if f.panics {
		panic("engine blew up")
	}
	if f.err != nil {
		return &generation.ProposalDraft{Warnings: append([]string{}, f.warnings...)}, f.err
	}
	draft := &generation.ProposalDraft{
		Sections: make(map[types.SectionKind]generation.SectionDraft),
		Warnings: append([]string{}, f.warnings...),
	}
	for _, s := range sections {
		draft.Sections[s] = generation.SectionDraft{
			Content: f.content + " [" + string(s) + "]",
			Tokens:  &types.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
			Model:   "fake-model",
		}
	}
	return draft, nil
}

// fixedClock ticks forward a fixed step on every Now call.
type fixedClock struct {
	t    time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func newFixedClock() *fixedClock {
	return &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: 250 * time.Millisecond}
}
