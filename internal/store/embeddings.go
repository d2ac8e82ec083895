package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grantwright/internal/logging"
)

// EmbeddingRecord is a stored context chunk with its vector.
type EmbeddingRecord struct {
	ID         string
	Content    string
	Embedding  []float32
	GrantID    string
	DocumentID string
}

// ChunkRow is a raw embedding row for client-side ranking. The Embedding blob
// is returned undecoded so callers can detect malformed vectors themselves.
type ChunkRow struct {
	ID         string
	Content    string
	DocumentID string
	Embedding  []byte
}

// MatchRow is a store-side ranked chunk. Similarity is nil when the stored
// vector was missing or malformed.
type MatchRow struct {
	ID         string
	Content    string
	DocumentID string
	Similarity *float64
}

// InsertEmbedding stores a context chunk with its vector and returns its id.
func (s *Store) InsertEmbedding(ctx context.Context, rec EmbeddingRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	var blob interface{}
	if rec.Embedding != nil {
		blob = EncodeVector(rec.Embedding)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_embeddings (id, content, embedding, grant_id, uploaded_document_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Content, blob, nullable(rec.GrantID), nullable(rec.DocumentID),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert embedding: %w", err)
	}

	return id, nil
}

// insertRawEmbedding stores an embedding row with an arbitrary blob. Used by
// tests to plant malformed vectors.
func (s *Store) insertRawEmbedding(ctx context.Context, id, content string, blob []byte, grantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_embeddings (id, content, embedding, grant_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, content, blob, nullable(grantID), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// FetchChunkRows returns up to limit embedding rows for a grant in storage
// order, vectors undecoded.
func (s *Store) FetchChunkRows(ctx context.Context, grantID string, limit int) ([]ChunkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, uploaded_document_id, embedding
		 FROM document_embeddings
		 WHERE grant_id = ?
		 ORDER BY rowid ASC
		 LIMIT ?`, grantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		var docID sql.NullString
		if err := rows.Scan(&r.ID, &r.Content, &docID, &r.Embedding); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		r.DocumentID = docID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// MatchChunks ranks a grant's chunks against a query vector inside SQLite and
// returns the top limit rows. Rows whose stored vector is missing, has the
// wrong byte length, or is otherwise undecodable get a nil similarity and
// rank as if they scored zero. Ties keep storage order.
func (s *Store) MatchChunks(ctx context.Context, queryVec []float32, grantID string, limit int) ([]MatchRow, error) {
	timer := logging.StartTimer(logging.CategoryStore, "MatchChunks")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob := EncodeVector(queryVec)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, uploaded_document_id,
		        CASE WHEN embedding IS NOT NULL
		              AND length(embedding) = ?2
		              AND length(embedding) % 4 = 0
		             THEN 1.0 - vec_distance_cosine(embedding, ?1)
		             ELSE NULL END AS similarity
		 FROM document_embeddings
		 WHERE grant_id = ?3
		 ORDER BY COALESCE(similarity, 0.0) DESC, rowid ASC
		 LIMIT ?4`,
		blob, len(blob), grantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to match chunks: %w", err)
	}
	defer rows.Close()

	var out []MatchRow
	for rows.Next() {
		var r MatchRow
		var docID sql.NullString
		var sim sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Content, &docID, &sim); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		r.DocumentID = docID.String
		if sim.Valid {
			v := sim.Float64
			r.Similarity = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logging.StoreDebug("MatchChunks returned %d rows for grant %s", len(out), grantID)
	return out, nil
}
