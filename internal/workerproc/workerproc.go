// Package workerproc turns extraction queue payloads into ProcessExtraction
// calls. Both the polling worker and the Lambda consumer go through it.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"onboarding-backend/internal/queue"
	"onboarding-backend/internal/shared/telemetry"
)

// Processor runs extraction for a stored document.
type Processor interface {
	ProcessExtraction(ctx context.Context, documentID string) error
}

// Fingerprint identifies a payload in logs without echoing it.
type Fingerprint struct {
	BodyLen int
	BodySHA string
}

// FingerprintOf hashes body. Empty bodies get a zero fingerprint.
func FingerprintOf(body string) Fingerprint {
	if body == "" {
		return Fingerprint{}
	}
	sum := sha256.Sum256([]byte(body))
	return Fingerprint{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// Reasons a payload is rejected before any processing.
const (
	ReasonEmptyBody    = "empty_body"
	ReasonDecode       = "decode"
	ReasonMissingDocID = "missing_document_id"
)

// BadMessageError marks a payload that can never be processed, however many
// times it is redelivered.
type BadMessageError struct {
	Reason      string
	Fingerprint Fingerprint
	Err         error
}

func (e *BadMessageError) Error() string {
	if e.Err == nil {
		return "bad message: " + e.Reason
	}
	return "bad message: " + e.Reason + ": " + e.Err.Error()
}

func (e *BadMessageError) Unwrap() error { return e.Err }

// Unrecoverable reports whether err came from a malformed payload.
func Unrecoverable(err error) bool {
	var bad *BadMessageError
	return errors.As(err, &bad)
}

// Parse decodes a queue payload and checks it names a document.
func Parse(body string) (queue.Message, Fingerprint, error) {
	fp := FingerprintOf(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, fp, &BadMessageError{Reason: ReasonEmptyBody, Fingerprint: fp}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, fp, &BadMessageError{Reason: ReasonDecode, Fingerprint: fp, Err: err}
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return msg, fp, &BadMessageError{Reason: ReasonMissingDocID, Fingerprint: fp}
	}
	return msg, fp, nil
}

// Run processes an already decoded message under its request id.
func Run(ctx context.Context, processor Processor, msg queue.Message) error {
	if processor == nil {
		return errors.New("extraction processor not configured")
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessExtraction(ctx, msg.DocumentID); err != nil {
		return fmt.Errorf("process document %s: %w", msg.DocumentID, err)
	}
	return nil
}

// Handle is Parse followed by Run.
func Handle(ctx context.Context, processor Processor, body string) error {
	msg, _, err := Parse(body)
	if err != nil {
		return err
	}
	return Run(ctx, processor, msg)
}
