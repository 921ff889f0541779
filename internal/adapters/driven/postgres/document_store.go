package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// It stores the ingestion registry only; chunk content lives in the index.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document record. Records are keyed by id, with a
// unique source so re-ingesting the same source replaces its record.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, source, metadata, chunk_count, created_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source) DO UPDATE SET
			id = EXCLUDED.id,
			metadata = EXCLUDED.metadata,
			chunk_count = EXCLUDED.chunk_count,
			ingested_at = EXCLUDED.ingested_at
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Source,
		metadataJSON,
		doc.ChunkCount,
		doc.CreatedAt,
		doc.IngestedAt,
	)
	return err
}

// Get retrieves a document record by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, source, metadata, chunk_count, created_at, ingested_at
		FROM documents
		WHERE id = $1
	`

	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetBySource retrieves a document record by its source identifier
func (s *DocumentStore) GetBySource(ctx context.Context, source string) (*domain.Document, error) {
	query := `
		SELECT id, source, metadata, chunk_count, created_at, ingested_at
		FROM documents
		WHERE source = $1
	`

	return s.scanDocument(s.db.QueryRowContext(ctx, query, source))
}

// List returns document records ordered by ingestion time, newest first
func (s *DocumentStore) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT id, source, metadata, chunk_count, created_at, ingested_at
		FROM documents
		ORDER BY ingested_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// Close releases the store's database handle
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentRow(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func scanDocumentRow(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON []byte

	err := row.Scan(
		&doc.ID,
		&doc.Source,
		&metadataJSON,
		&doc.ChunkCount,
		&doc.CreatedAt,
		&doc.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, err
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}

	return &doc, nil
}
