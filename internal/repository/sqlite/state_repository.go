package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"seedvigil/internal/repository"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS state_documents (
	bucket TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// StateRepository stores each logical bucket as a single JSON document row.
type StateRepository struct {
	db *sql.DB
}

func NewStateRepository(db *sql.DB) repository.StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createStateTable); err != nil {
		return fmt.Errorf("create state_documents table: %w", err)
	}
	return nil
}

// Load returns the stored document for a bucket, or nil when the bucket has
// never been written.
func (r *StateRepository) Load(ctx context.Context, bucket string) ([]byte, error) {
	var document string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM state_documents WHERE bucket=?`, bucket).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bucket %s: %w", bucket, err)
	}
	return []byte(document), nil
}

func (r *StateRepository) Save(ctx context.Context, bucket string, document []byte) error {
	if bucket == "" {
		return errors.New("bucket name is required")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO state_documents (bucket, document, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(bucket) DO UPDATE SET document=excluded.document, updated_at=excluded.updated_at`,
		bucket, string(document), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save bucket %s: %w", bucket, err)
	}
	return nil
}

// Buckets returns every stored document, used to build backup snapshots.
func (r *StateRepository) Buckets(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bucket, document FROM state_documents`)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var bucket, document string
		if err := rows.Scan(&bucket, &document); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out[bucket] = []byte(document)
	}
	return out, rows.Err()
}
