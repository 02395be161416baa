package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents. Conditional writes return
// ErrConflict when the stored status no longer matches and ErrNotFound when
// the document does not exist.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// List returns every document newest first.
	List(ctx context.Context, limit, offset int) ([]Document, error)
	// ListByEmployee returns newest first. A non-positive limit returns all.
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]Document, error)
	// ListByStatus returns oldest first so review queues are worked in order.
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Document, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	// ApplyExtraction only succeeds while the document is pending_extraction.
	ApplyExtraction(ctx context.Context, id string, out ExtractionOutcome) error
	// Decide only succeeds while the document is pending_review.
	Decide(ctx context.Context, id string, rec DecisionRecord) error
	// ListSuperseded returns documents uploaded before cutoff that have a newer
	// upload of the same type for the same employee.
	ListSuperseded(ctx context.Context, cutoff time.Time) ([]Document, error)
	Delete(ctx context.Context, id string) error
	// DeleteByEmployee removes every document of an employee and returns the
	// removed rows so their stored bytes can be cleaned up.
	DeleteByEmployee(ctx context.Context, employeeID string) ([]Document, error)
}
