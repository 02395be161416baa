package documents

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for unknown documents and for documents the
	// caller may not see.
	ErrNotFound = errors.New("document not found")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned by repositories when a conditional write lost.
	ErrConflict = errors.New("document state changed")
)

// Reasons carried by ValidationError and TransitionError.
const (
	ReasonInvalidDocumentType  = "invalid_document_type"
	ReasonEmptyFile            = "empty_file"
	ReasonPayloadTooLarge      = "payload_too_large"
	ReasonUnsupportedMediaType = "unsupported_media_type"
	ReasonNotesRequired        = "notes_required"
	ReasonInvalidDecision      = "invalid_decision"
	ReasonInvalidEmployee      = "invalid_employee"
	TransitionInvalid          = "invalid_transition"
	TransitionMissingFields    = "missing_required_fields"
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return strings.ReplaceAll(e.Reason, "_", " ")
}

func invalid(reason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError with the given reason.
func IsValidation(err error, reason string) bool {
	var v *ValidationError
	return errors.As(err, &v) && v.Reason == reason
}

// TransitionError reports an illegal status change. The document is unchanged.
type TransitionError struct {
	From    Status
	To      Status
	Reason  string
	Missing []string
}

func (e *TransitionError) Error() string {
	switch e.Reason {
	case TransitionMissingFields:
		return fmt.Sprintf("cannot mark document %s: required fields missing: %s; set override to verify anyway",
			e.To, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("cannot move document from %s to %s", e.From, e.To)
	}
}
