package documents

import (
	"time"

	"onboarding-backend/internal/doctypes"
)

// Status is a document's verification state.
type Status string

const (
	StatusPendingExtraction Status = "pending_extraction"
	StatusPendingReview     Status = "pending_review"
	StatusVerified          Status = "verified"
	StatusRejected          Status = "rejected"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{StatusPendingExtraction, StatusPendingReview, StatusVerified, StatusRejected}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Pending reports whether the document still awaits a decision.
func (s Status) Pending() bool {
	return s == StatusPendingExtraction || s == StatusPendingReview
}

// Document is the persisted record. RawFields hold unmasked extraction output
// and must only leave this package through View.
type Document struct {
	ID               string
	EmployeeID       string
	Type             doctypes.Type
	OriginalFilename string
	StorageKey       string
	MimeType         string
	SizeBytes        int64
	RawFields        map[string]string
	Confidence       *float64
	Issues           []string
	MissingFields    []string
	Status           Status
	Notes            string
	VerifiedOverride bool
	ReviewedBy       string
	UploadedAt       time.Time
	ExtractedAt      *time.Time
	VerifiedAt       *time.Time
}

// ExtractionOutcome is what the engine writes when extraction settles.
type ExtractionOutcome struct {
	RawFields     map[string]string
	Confidence    *float64
	Issues        []string
	MissingFields []string
	Notes         string
	ExtractedAt   time.Time
}

// DecisionRecord is what the engine writes for an HR decision.
type DecisionRecord struct {
	Status     Status
	Notes      string
	Override   bool
	ReviewedBy string
	DecidedAt  time.Time
}

func (d Document) apply(out ExtractionOutcome) Document {
	d.RawFields = copyFields(out.RawFields)
	d.Confidence = out.Confidence
	d.Issues = append([]string{}, out.Issues...)
	d.MissingFields = append([]string{}, out.MissingFields...)
	d.Notes = out.Notes
	at := out.ExtractedAt
	d.ExtractedAt = &at
	d.Status = StatusPendingReview
	return d
}

func (d Document) decide(rec DecisionRecord) Document {
	d.Status = rec.Status
	d.Notes = rec.Notes
	d.VerifiedOverride = rec.Override
	d.ReviewedBy = rec.ReviewedBy
	at := rec.DecidedAt
	d.VerifiedAt = &at
	return d
}

func (d Document) clone() Document {
	d.RawFields = copyFields(d.RawFields)
	d.Issues = append([]string{}, d.Issues...)
	d.MissingFields = append([]string{}, d.MissingFields...)
	if d.Confidence != nil {
		c := *d.Confidence
		d.Confidence = &c
	}
	if d.ExtractedAt != nil {
		t := *d.ExtractedAt
		d.ExtractedAt = &t
	}
	if d.VerifiedAt != nil {
		t := *d.VerifiedAt
		d.VerifiedAt = &t
	}
	return d
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
