// Package store provides SQLite persistence for grants, uploaded documents,
// document embeddings, generated proposal sections, and generation telemetry.
//
// The generation write path is insert-only: every write is an independent
// best-effort insert with no transactions spanning pipeline phases.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"grantwright/internal/logging"
	"grantwright/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database handle.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// New initializes the SQLite database at the given path.
// Use ":memory:" for an in-memory store.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	logging.Store("Initializing store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(sqlDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	store := &Store{db: db, dbPath: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.StoreDebug("Database schema initialized")

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// =============================================================================
// GRANTS
// =============================================================================

// CreateGrant inserts a new grant record and returns its id.
func (s *Store) CreateGrant(ctx context.Context, g types.GrantMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := g.ID
	if id == "" {
		id = uuid.NewString()
	}

	var funding interface{}
	if g.FundingAmount != nil {
		funding = *g.FundingAmount
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grants (id, organization_name, project_title, grantor_name, funding_amount, project_description, structure_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullable(g.OrganizationName), nullable(g.ProjectTitle), nullable(g.GrantorName),
		funding, nullable(g.ProjectDescription), nullable(g.StructureType), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert grant: %w", err)
	}

	logging.Store("Created grant record: %s", id)
	return id, nil
}

// GetGrant fetches a grant metadata snapshot. Returns ErrNotFound when no
// such grant exists.
func (s *Store) GetGrant(ctx context.Context, id string) (*types.GrantMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, organization_name, project_title, grantor_name, funding_amount, project_description, structure_type
		 FROM grants WHERE id = ?`, id)

	var g types.GrantMetadata
	var org, title, grantor, desc, structure sql.NullString
	var funding sql.NullFloat64

	if err := row.Scan(&g.ID, &org, &title, &grantor, &funding, &desc, &structure); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query grant: %w", err)
	}

	g.OrganizationName = org.String
	g.ProjectTitle = title.String
	g.GrantorName = grantor.String
	g.ProjectDescription = desc.String
	g.StructureType = structure.String
	if funding.Valid {
		v := funding.Float64
		g.FundingAmount = &v
	}

	return &g, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is an uploaded source document record.
type Document struct {
	ID            string
	FileName      string
	FileURL       string
	FileType      string
	ExtractedText string
	GrantID       string
}

// InsertDocument inserts an uploaded document record and returns its id.
func (s *Store) InsertDocument(ctx context.Context, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploaded_documents (id, file_name, file_url, file_type, extracted_text, grant_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, doc.FileName, nullable(doc.FileURL), nullable(doc.FileType),
		nullable(doc.ExtractedText), nullable(doc.GrantID), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	return id, nil
}

// nullable converts an empty string to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
