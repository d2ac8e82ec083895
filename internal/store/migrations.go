package store

import "fmt"

// schema holds the DDL for all tables. Statements are idempotent so migrate
// can run on every open.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		organization_name TEXT,
		project_title TEXT,
		grantor_name TEXT,
		funding_amount REAL,
		project_description TEXT,
		structure_type TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS uploaded_documents (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_url TEXT,
		file_type TEXT,
		extracted_text TEXT,
		grant_id TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (grant_id) REFERENCES grants(id)
	)`,
	`CREATE TABLE IF NOT EXISTS document_embeddings (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		embedding BLOB,
		grant_id TEXT,
		uploaded_document_id TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (grant_id) REFERENCES grants(id),
		FOREIGN KEY (uploaded_document_id) REFERENCES uploaded_documents(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_embeddings_grant ON document_embeddings(grant_id)`,
	`CREATE TABLE IF NOT EXISTS proposal_sections (
		id TEXT PRIMARY KEY,
		grant_id TEXT,
		section_name TEXT NOT NULL,
		content TEXT,
		tokens_used INTEGER,
		model_used TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (grant_id) REFERENCES grants(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proposal_sections_grant ON proposal_sections(grant_id)`,
	`CREATE TABLE IF NOT EXISTS generation_logs (
		id TEXT PRIMARY KEY,
		grant_id TEXT,
		section_name TEXT NOT NULL,
		retrieval_time_ms INTEGER,
		generation_time_ms INTEGER,
		context_sources TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (grant_id) REFERENCES grants(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_logs_grant ON generation_logs(grant_id)`,
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
