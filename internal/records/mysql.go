package records

import (
	"context"
	"database/sql"
	"fmt"
)

type MySQLStore struct {
	DB *sql.DB
}

var _ Store = (*MySQLStore)(nil)

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) Insert(ctx context.Context, rec *Record) (*Record, error) {
	stamp(rec)
	_, err := s.DB.ExecContext(ctx, `INSERT INTO signatures (`+recordColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, rec.OwnerID, rec.X, rec.Y, rec.Page, rec.Status,
		rec.SignedAt, rec.SignedURL, rec.StorageID, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert signature: %w", err)
	}
	return rec, nil
}

func (s *MySQLStore) FindByDocumentID(ctx context.Context, documentID string) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+recordColumns+`
FROM signatures
WHERE document_id = ?
ORDER BY created_at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("find signatures: %w", err)
	}
	return collectSQL(rows)
}

func (s *MySQLStore) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM signatures WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete signatures: %w", err)
	}
	return res.RowsAffected()
}

func (s *MySQLStore) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+recordColumns+`
FROM signatures
WHERE owner_id = ? AND (? = '' OR status = ?)
ORDER BY signed_at DESC
LIMIT ? OFFSET ?`, ownerID, opts.Status, opts.Status, opts.Limit, opts.offset())
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return collectSQL(rows)
}

func collectSQL(rows *sql.Rows) ([]Record, error) {
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
