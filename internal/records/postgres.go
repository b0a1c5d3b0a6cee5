package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, document_id, owner_id, x, y, page, status, signed_at, signed_url, storage_id, created_at, updated_at`

type PostgresStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, rec *Record) (*Record, error) {
	stamp(rec)
	_, err := s.Pool.Exec(ctx, `INSERT INTO signatures (`+recordColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.DocumentID, rec.OwnerID, rec.X, rec.Y, rec.Page, rec.Status,
		rec.SignedAt, rec.SignedURL, rec.StorageID, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert signature: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByDocumentID(ctx context.Context, documentID string) ([]Record, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+recordColumns+`
FROM signatures
WHERE document_id = $1
ORDER BY created_at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("find signatures: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM signatures WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete signatures: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]Record, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+recordColumns+`
FROM signatures
WHERE owner_id = $1 AND ($2 = '' OR status = $2)
ORDER BY signed_at DESC
LIMIT $3 OFFSET $4`, ownerID, opts.Status, opts.Limit, opts.offset())
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.OwnerID, &r.X, &r.Y, &r.Page, &r.Status,
			&r.SignedAt, &r.SignedURL, &r.StorageID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
