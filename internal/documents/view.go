package documents

import (
	"sort"
	"time"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/redact"
)

// View is the read model handed to callers. Fields are always masked.
type View struct {
	ID               string
	EmployeeID       string
	Type             doctypes.Type
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	Fields           map[string]string
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

// NewView redacts a document for display.
func NewView(doc Document) View {
	doc = doc.clone()
	return View{
		ID:               doc.ID,
		EmployeeID:       doc.EmployeeID,
		Type:             doc.Type,
		OriginalFilename: doc.OriginalFilename,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		Fields:           redact.Fields(doc.Type, doc.RawFields),
		Confidence:       doc.Confidence,
		Issues:           doc.Issues,
		MissingFields:    doc.MissingFields,
		Status:           doc.Status,
		Notes:            doc.Notes,
		VerifiedOverride: doc.VerifiedOverride,
		ReviewedBy:       doc.ReviewedBy,
		UploadedAt:       doc.UploadedAt,
		ExtractedAt:      doc.ExtractedAt,
		VerifiedAt:       doc.VerifiedAt,
	}
}

func newViews(docs []Document) []View {
	out := make([]View, 0, len(docs))
	for _, d := range docs {
		out = append(out, NewView(d))
	}
	return out
}

// newer orders by upload time, then by id. Ids are time-ordered, so equal
// timestamps still follow creation order.
func newer(a, b View) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.After(b.UploadedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders views in place.
func SortNewestFirst(views []View) {
	sort.SliceStable(views, func(i, j int) bool { return newer(views[i], views[j]) })
}

// Current returns the newest view per document type. Superseded uploads are
// dropped.
func Current(views []View) map[doctypes.Type]View {
	out := make(map[doctypes.Type]View, len(doctypes.All))
	for _, v := range views {
		prev, ok := out[v.Type]
		if !ok || newer(v, prev) {
			out[v.Type] = v
		}
	}
	return out
}

// IsCurrent reports whether v is the newest upload of its type in views.
func IsCurrent(v View, current map[doctypes.Type]View) bool {
	c, ok := current[v.Type]
	return ok && c.ID == v.ID
}
