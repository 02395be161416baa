package documents

import (
	"time"

	"onboarding-backend/internal/doctypes"
)

// DocumentResponse is the outward-facing representation of a document.
// Fields are already masked.
type DocumentResponse struct {
	DocumentID       string            `json:"documentId"`
	EmployeeID       string            `json:"employeeId"`
	DocumentType     string            `json:"documentType"`
	FileName         string            `json:"fileName"`
	MimeType         string            `json:"mimeType"`
	SizeBytes        int64             `json:"sizeBytes"`
	Status           string            `json:"status"`
	Fields           map[string]string `json:"fields"`
	Confidence       *float64          `json:"confidence"`
	Issues           []string          `json:"issues"`
	MissingFields    []string          `json:"missingFields"`
	Notes            string            `json:"notes"`
	VerifiedOverride bool              `json:"verifiedOverride"`
	ReviewedBy       string            `json:"reviewedBy,omitempty"`
	UploadedAt       time.Time         `json:"uploadedAt"`
	ExtractedAt      *time.Time        `json:"extractedAt,omitempty"`
	VerifiedAt       *time.Time        `json:"verifiedAt,omitempty"`
	Current          *bool             `json:"current,omitempty"`
}

// UploadResponse acknowledges an upload before extraction finishes.
type UploadResponse struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	Status       string `json:"status"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
	Override bool   `json:"override"`
}

// ToResponse converts a view for the wire.
func ToResponse(v View) DocumentResponse {
	return DocumentResponse{
		DocumentID:       v.ID,
		EmployeeID:       v.EmployeeID,
		DocumentType:     string(v.Type),
		FileName:         v.OriginalFilename,
		MimeType:         v.MimeType,
		SizeBytes:        v.SizeBytes,
		Status:           string(v.Status),
		Fields:           v.Fields,
		Confidence:       v.Confidence,
		Issues:           v.Issues,
		MissingFields:    v.MissingFields,
		Notes:            v.Notes,
		VerifiedOverride: v.VerifiedOverride,
		ReviewedBy:       v.ReviewedBy,
		UploadedAt:       v.UploadedAt,
		ExtractedAt:      v.ExtractedAt,
		VerifiedAt:       v.VerifiedAt,
	}
}

// ToResponses converts views and flags each employee's newest upload of each type.
func ToResponses(views []View) []DocumentResponse {
	byEmployee := make(map[string][]View)
	for _, v := range views {
		byEmployee[v.EmployeeID] = append(byEmployee[v.EmployeeID], v)
	}
	current := make(map[string]map[doctypes.Type]View, len(byEmployee))
	for id, list := range byEmployee {
		current[id] = Current(list)
	}
	out := make([]DocumentResponse, 0, len(views))
	for _, v := range views {
		r := ToResponse(v)
		isCurrent := IsCurrent(v, current[v.EmployeeID])
		r.Current = &isCurrent
		out = append(out, r)
	}
	return out
}
