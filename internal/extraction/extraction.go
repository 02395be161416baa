// Package extraction wraps the external AI document reader. Providers return
// raw JSON; Client validates, normalizes and retries them behind Extractor.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"onboarding-backend/internal/doctypes"
)

var (
	// ErrUnavailable marks transient provider failures, including timeouts.
	ErrUnavailable = errors.New("extraction unavailable")
	// ErrRejected marks documents the provider declared unreadable.
	ErrRejected = errors.New("extraction rejected")
)

// RejectedError carries the provider's reason for refusing a document.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejected.Error(), e.Reason)
}

// Is lets errors.Is(err, ErrRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Reject builds a RejectedError.
func Reject(reason string) error {
	return &RejectedError{Reason: reason}
}

// RejectionReason returns the provider reason carried by err, if any.
func RejectionReason(err error) string {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// Input is one document handed to the provider.
type Input struct {
	DocumentID   string
	DocumentType doctypes.Type
	Data         []byte
	MimeType     string
	FileName     string
}

// Result is the canonical extraction output.
type Result struct {
	Fields     map[string]string
	Confidence float64
	Issues     []string
}

// Extractor reads structured fields from a document.
type Extractor interface {
	Extract(ctx context.Context, in Input) (Result, error)
}

// Provider performs a single raw call to an extraction backend. Returning an
// error wrapping ErrRejected stops retries; any other error is transient.
type Provider interface {
	Name() string
	Extract(ctx context.Context, in Input) (json.RawMessage, error)
}

// Placeholder is used when no provider is configured. Every call is
// unavailable so documents still settle into manual review.
type Placeholder struct{}

// Name implements Provider.
func (Placeholder) Name() string { return "none" }

// Extract implements Provider.
func (Placeholder) Extract(ctx context.Context, in Input) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: no extraction provider configured", ErrUnavailable)
}
