package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grantwright/internal/logging"
)

// SectionRecord is a persisted generated proposal section.
type SectionRecord struct {
	ID          string
	GrantID     string
	SectionName string
	Content     string
	TokensUsed  int
	ModelUsed   string
}

// GenerationLog is a telemetry record for one section generation.
type GenerationLog struct {
	ID               string
	GrantID          string
	SectionName      string
	RetrievalTimeMs  int64
	GenerationTimeMs int64
	ContextSources   []string
}

// InsertSection persists a generated section and returns its id.
func (s *Store) InsertSection(ctx context.Context, rec SectionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposal_sections (id, grant_id, section_name, content, tokens_used, model_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, nullable(rec.GrantID), rec.SectionName, nullable(rec.Content),
		rec.TokensUsed, nullable(rec.ModelUsed), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert proposal section: %w", err)
	}

	logging.Store("Persisted section %q for grant %s (%d tokens)", rec.SectionName, rec.GrantID, rec.TokensUsed)
	return id, nil
}

// InsertGenerationLog persists a telemetry record. Context sources are stored
// as a JSON array of chunk ids.
func (s *Store) InsertGenerationLog(ctx context.Context, rec GenerationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	sources := rec.ContextSources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode context sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generation_logs (id, grant_id, section_name, retrieval_time_ms, generation_time_ms, context_sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, nullable(rec.GrantID), rec.SectionName, rec.RetrievalTimeMs, rec.GenerationTimeMs,
		string(sourcesJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation log: %w", err)
	}

	return nil
}
