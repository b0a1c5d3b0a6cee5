// Package records persists SignatureRecords, one per completed sign operation.
//
// Three Store implementations exist: MemoryStore for development and tests,
// PostgresStore on a pgx pool and MySQLStore on database/sql.
package records

import (
	"context"
	"time"
)

// Statuses accepted for a record.
const (
	StatusSigned   = "signed"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusSigned, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Record describes one signed artifact. X and Y are in PDF content space.
type Record struct {
	ID         string    `json:"_id"`
	DocumentID string    `json:"documentId"`
	OwnerID    string    `json:"userId"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Page       int       `json:"page"`
	Status     string    `json:"status"`
	SignedAt   time.Time `json:"signedAt"`
	SignedURL  string    `json:"signedUrl"`
	StorageID  string    `json:"public_id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ListOptions filters ListByOwner. Page is 1-based.
type ListOptions struct {
	Status string
	Page   int
	Limit  int
}

func (o ListOptions) offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

type Store interface {
	// Insert assigns ID and timestamps when they are empty and stores rec.
	Insert(ctx context.Context, rec *Record) (*Record, error)
	FindByDocumentID(ctx context.Context, documentID string) ([]Record, error)
	DeleteByDocumentID(ctx context.Context, documentID string) (int64, error)
	// ListByOwner returns records newest SignedAt first.
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]Record, error)
}
