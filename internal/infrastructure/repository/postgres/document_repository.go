package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// DocumentRepository persists processed document metadata. Content
// hash carries a unique constraint: a concurrent insert of the same
// bytes resolves to the already-created row's id.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processed_documents (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	original_size BIGINT NOT NULL,
	stored_size BIGINT NOT NULL,
	compressed BOOLEAN NOT NULL DEFAULT FALSE,
	compression_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
	extracted_text TEXT,
	summary TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	category TEXT,
	therapist_id TEXT NOT NULL,
	client_id TEXT,
	storage_path TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_documents_therapist ON processed_documents(therapist_id);
CREATE INDEX IF NOT EXISTS idx_processed_documents_created_at ON processed_documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.ProcessedDocument) (string, error) {
	tagsJSON, err := json.Marshal(orEmpty(doc.Tags))
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	keywordsJSON, err := json.Marshal(orEmpty(doc.Keywords))
	if err != nil {
		return "", fmt.Errorf("marshal keywords: %w", err)
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO processed_documents (
	id, file_name, content_hash, original_size, stored_size, compressed, compression_ratio,
	extracted_text, summary, tags, keywords, category, therapist_id, client_id, storage_path, page_count, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (content_hash) DO UPDATE SET content_hash = EXCLUDED.content_hash
RETURNING id
`,
		id, doc.FileName, doc.ContentHash, doc.OriginalSize, doc.StoredSize, doc.Compressed, doc.CompressionRatio,
		doc.ExtractedText, doc.Summary, tagsJSON, keywordsJSON, doc.Category, doc.TherapistID, doc.ClientID,
		doc.StoragePath, doc.PageCount, doc.CreatedAt,
	)

	var createdID string
	if err := row.Scan(&createdID); err != nil {
		return "", fmt.Errorf("insert processed document: %w", err)
	}
	return createdID, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.ProcessedDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, file_name, content_hash, original_size, stored_size, compressed, compression_ratio,
	extracted_text, summary, tags, keywords, category, therapist_id, client_id, storage_path, page_count, created_at
FROM processed_documents
WHERE id = $1
`, id)

	var doc domain.ProcessedDocument
	var tagsRaw, keywordsRaw []byte

	err := row.Scan(
		&doc.ID, &doc.FileName, &doc.ContentHash, &doc.OriginalSize, &doc.StoredSize, &doc.Compressed,
		&doc.CompressionRatio, &doc.ExtractedText, &doc.Summary, &tagsRaw, &keywordsRaw, &doc.Category,
		&doc.TherapistID, &doc.ClientID, &doc.StoragePath, &doc.PageCount, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan processed document: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(keywordsRaw, &doc.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	return &doc, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
