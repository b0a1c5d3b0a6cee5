package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-signpdf/internal/utils"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	Records map[string]*Record
	Mutex   sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Records: make(map[string]*Record),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, rec *Record) (*Record, error) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	stamp(rec)
	stored := *rec
	m.Records[stored.ID] = &stored
	return rec, nil
}

func (m *MemoryStore) FindByDocumentID(ctx context.Context, documentID string) ([]Record, error) {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()

	var out []Record
	for _, r := range m.Records {
		if r.DocumentID == documentID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	var n int64
	for id, r := range m.Records {
		if r.DocumentID == documentID {
			delete(m.Records, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]Record, error) {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()

	var out []Record
	for _, r := range m.Records {
		if r.OwnerID != ownerID {
			continue
		}
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.After(out[j].SignedAt) })

	start := opts.offset()
	if start >= len(out) {
		return []Record{}, nil
	}
	out = out[start:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func stamp(rec *Record) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = utils.GenerateUUID()
	}
	if rec.SignedAt.IsZero() {
		rec.SignedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
}
