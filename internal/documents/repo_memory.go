package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return ErrConflict
	}
	r.data[doc.ID] = doc.clone()
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.clone(), nil
}

// List returns all documents, newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return r.list(ctx, func(Document) bool { return true }, true, limit, offset)
}

// ListByEmployee returns documents for an employee, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]Document, error) {
	return r.list(ctx, func(d Document) bool { return d.EmployeeID == employeeID }, true, limit, offset)
}

// ListByStatus returns documents in the given status, oldest first.
func (r *MemoryRepo) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Document, error) {
	return r.list(ctx, func(d Document) bool { return d.Status == status }, false, limit, offset)
}

// CountByStatus counts documents in the given status.
func (r *MemoryRepo) CountByStatus(ctx context.Context, status Status) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.data {
		if d.Status == status {
			n++
		}
	}
	return n, nil
}

// ApplyExtraction settles extraction while the document is pending_extraction.
func (r *MemoryRepo) ApplyExtraction(ctx context.Context, id string, out ExtractionOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusPendingExtraction {
		return ErrConflict
	}
	r.data[id] = doc.apply(out)
	return nil
}

// Decide records an HR decision while the document is pending_review.
func (r *MemoryRepo) Decide(ctx context.Context, id string, rec DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusPendingReview {
		return ErrConflict
	}
	r.data[id] = doc.decide(rec)
	return nil
}

// ListSuperseded returns replaced documents uploaded before cutoff.
func (r *MemoryRepo) ListSuperseded(ctx context.Context, cutoff time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	type slot struct{ employee, typ string }
	newest := make(map[slot]View)
	for _, d := range r.data {
		v := View{ID: d.ID, Type: d.Type, UploadedAt: d.UploadedAt}
		key := slot{d.EmployeeID, string(d.Type)}
		if prev, ok := newest[key]; !ok || newer(v, prev) {
			newest[key] = v
		}
	}

	var out []Document
	for _, d := range r.data {
		if !d.UploadedAt.Before(cutoff) {
			continue
		}
		if newest[slot{d.EmployeeID, string(d.Type)}].ID != d.ID {
			out = append(out, d.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

// Delete removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// DeleteByEmployee removes all documents of an employee.
func (r *MemoryRepo) DeleteByEmployee(ctx context.Context, employeeID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Document{}
	for id, d := range r.data {
		if d.EmployeeID == employeeID {
			out = append(out, d)
			delete(r.data, id)
		}
	}
	return out, nil
}

func (r *MemoryRepo) list(ctx context.Context, match func(Document) bool, newestFirst bool, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	docs := make([]Document, 0)
	for _, d := range r.data {
		if match(d) {
			docs = append(docs, d.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		a, b := View{ID: docs[i].ID, UploadedAt: docs[i].UploadedAt}, View{ID: docs[j].ID, UploadedAt: docs[j].UploadedAt}
		if newestFirst {
			return newer(a, b)
		}
		return newer(b, a)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
