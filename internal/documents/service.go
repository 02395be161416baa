package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/extraction"
	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/storage/object"
	"onboarding-backend/internal/shared/telemetry"
)

const (
	DefaultMaxUploadBytes int64 = 10 << 20
	DefaultPageSize             = 20
	MaxPageSize                 = 100

	// ProcessingStatus is reported to uploaders while extraction runs.
	ProcessingStatus = "processing"

	lowConfidenceThreshold = 0.5
	settleTimeout          = 10 * time.Second
)

// Extraction notes written by the engine.
const (
	NoteExtractionCompleted    = "AI: extraction completed"
	NoteLowConfidence          = " Low confidence — verify manually."
	NoteExtractionFailed       = "AI: extraction failed, manual review required"
	NoteExtractionUnreadable   = "AI: document unreadable, manual review required"
	IssueExtractionUnavailable = "extraction_unavailable"
	IssueExtractionRejected    = "extraction_rejected"
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// EmployeeDirectory confirms that upload targets exist.
type EmployeeDirectory interface {
	Exists(ctx context.Context, employeeID string) (bool, error)
}

// Service is the verification engine. It owns every status change.
type Service struct {
	Store      object.ObjectStore
	Repo       Repo
	Extractor  extraction.Extractor
	Dispatcher Dispatcher
	// Employees is optional. When nil any employee id is accepted.
	Employees      EmployeeDirectory
	MaxUploadBytes int64
	// Retention is how long superseded uploads are kept. Zero keeps them forever.
	Retention time.Duration
	Now       func() time.Time
	NewID     func() string
}

// UploadRequest is one file submission.
type UploadRequest struct {
	// EmployeeID defaults to the caller. Only HR may name someone else.
	EmployeeID   string
	DocumentType string
	FileName     string
	Body         io.Reader
}

// UploadResult acknowledges an accepted upload.
type UploadResult struct {
	DocumentID   string
	DocumentType doctypes.Type
	Status       string
}

// DecisionRequest is an HR verdict on a document in review.
type DecisionRequest struct {
	Decision string
	Notes    string
	// Override allows verifying while required fields are missing.
	Override bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	// Version 7 ids sort by creation time, which breaks upload-time ties.
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func (s *Service) maxUpload() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// Upload validates the file, stores it, records the document and dispatches
// extraction. Nothing is written unless every check passes.
func (s *Service) Upload(ctx context.Context, caller identity.Identity, req UploadRequest) (UploadResult, error) {
	if !caller.Valid() {
		return UploadResult{}, ErrForbidden
	}
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		employeeID = caller.EmployeeID
	}
	if !caller.CanAccess(employeeID) {
		return UploadResult{}, ErrForbidden
	}

	docType, ok := doctypes.Parse(req.DocumentType)
	if !ok {
		return UploadResult{}, invalid(ReasonInvalidDocumentType, "unknown document type %q", req.DocumentType)
	}

	if req.Body == nil {
		return UploadResult{}, invalid(ReasonEmptyFile, "file is empty")
	}
	limit := s.maxUpload()
	data, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return UploadResult{}, invalid(ReasonEmptyFile, "file is empty")
	}
	if int64(len(data)) > limit {
		return UploadResult{}, invalid(ReasonPayloadTooLarge, "file exceeds %d bytes", limit)
	}

	fileName := strings.TrimSpace(req.FileName)
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(fileName))]; !ok {
		return UploadResult{}, invalid(ReasonUnsupportedMediaType, "only pdf, png, jpg and jpeg files are accepted")
	}

	if s.Employees != nil && employeeID != caller.EmployeeID {
		exists, err := s.Employees.Exists(ctx, employeeID)
		if err != nil {
			return UploadResult{}, fmt.Errorf("check employee: %w", err)
		}
		if !exists {
			return UploadResult{}, invalid(ReasonInvalidEmployee, "unknown employee %q", employeeID)
		}
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, employeeID, fileName, bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, fmt.Errorf("store upload: %w", err)
	}

	doc := Document{
		ID:               s.newID(),
		EmployeeID:       employeeID,
		Type:             docType,
		OriginalFilename: fileName,
		StorageKey:       storageKey,
		MimeType:         mimeType,
		SizeBytes:        size,
		RawFields:        map[string]string{},
		Issues:           []string{},
		MissingFields:    []string{},
		Status:           StatusPendingExtraction,
		UploadedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(telemetry.Detach(ctx), storageKey); delErr != nil {
			telemetry.Warn("document.orphan_object", map[string]any{
				"request_id":  telemetry.RequestID(ctx),
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return UploadResult{}, fmt.Errorf("create document: %w", err)
	}

	metrics.IncDocumentUploaded()
	logTransition(ctx, doc, "", StatusPendingExtraction, caller.EmployeeID)

	s.dispatch(ctx, doc)

	return UploadResult{DocumentID: doc.ID, DocumentType: docType, Status: ProcessingStatus}, nil
}

// dispatch hands the document to the background workers. Failure is absorbed
// by settling the document for manual review.
func (s *Service) dispatch(ctx context.Context, doc Document) {
	job := Job{DocumentID: doc.ID, RequestID: telemetry.RequestID(ctx)}
	if s.Dispatcher == nil {
		if err := s.ProcessExtraction(telemetry.Detach(ctx), doc.ID); err != nil {
			telemetry.Error("extraction.inline_failed", map[string]any{
				"request_id":  job.RequestID,
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
		return
	}
	// The upload is already committed; a caller that goes away must not
	// cancel the hand-off.
	dctx, cancel := context.WithTimeout(telemetry.Detach(ctx), settleTimeout)
	defer cancel()
	err := s.Dispatcher.Dispatch(dctx, job)
	if err == nil {
		return
	}
	telemetry.Error("extraction.dispatch_failed", map[string]any{
		"request_id":  job.RequestID,
		"document_id": doc.ID,
		"error":       err.Error(),
	})
	metrics.IncExtractionFailed()
	if err := s.settle(ctx, doc, s.unavailableOutcome(doc.Type)); err != nil {
		telemetry.Error("extraction.settle_failed", map[string]any{
			"request_id":  job.RequestID,
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}

// ProcessExtraction runs the extractor for a stored document and moves it to
// pending_review. Documents no longer pending extraction are left alone, so
// duplicate or late deliveries are harmless.
func (s *Service) ProcessExtraction(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		telemetry.Warn("extraction.document_missing", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"document_id": documentID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Status != StatusPendingExtraction {
		telemetry.Info("extraction.skipped", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"document_id": documentID,
			"status":      string(doc.Status),
		})
		return nil
	}

	metrics.IncExtractionStarted()
	started := time.Now()
	out := s.extract(ctx, doc)
	metrics.ObserveExtractionDurationMs(float64(time.Since(started).Milliseconds()))

	return s.settle(ctx, doc, out)
}

func (s *Service) extract(ctx context.Context, doc Document) ExtractionOutcome {
	if s.Extractor == nil {
		metrics.IncExtractionFailed()
		return s.unavailableOutcome(doc.Type)
	}

	data, err := s.readObject(ctx, doc.StorageKey)
	if err != nil {
		telemetry.Error("extraction.read_failed", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		metrics.IncExtractionFailed()
		return s.unavailableOutcome(doc.Type)
	}

	res, err := s.Extractor.Extract(ctx, extraction.Input{
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Data:         data,
		MimeType:     doc.MimeType,
		FileName:     doc.OriginalFilename,
	})
	switch {
	case err == nil:
		metrics.IncExtractionCompleted()
		return s.successOutcome(doc.Type, res)
	case errors.Is(err, extraction.ErrRejected):
		metrics.IncExtractionRejected()
		return s.rejectedOutcome(doc.Type, extraction.RejectionReason(err))
	default:
		telemetry.Warn("extraction.unavailable", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		metrics.IncExtractionFailed()
		return s.unavailableOutcome(doc.Type)
	}
}

func (s *Service) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, s.maxUpload()+1))
}

func (s *Service) successOutcome(t doctypes.Type, res extraction.Result) ExtractionOutcome {
	missing := t.MissingFields(res.Fields)
	confidence := res.Confidence
	notes := NoteExtractionCompleted
	if confidence < lowConfidenceThreshold {
		notes += NoteLowConfidence
	}
	if len(missing) > 0 {
		notes += " Missing required fields: " + strings.Join(missing, ", ") + "."
	}
	issues := res.Issues
	if issues == nil {
		issues = []string{}
	}
	return ExtractionOutcome{
		RawFields:     copyFields(res.Fields),
		Confidence:    &confidence,
		Issues:        issues,
		MissingFields: missing,
		Notes:         notes,
		ExtractedAt:   s.now(),
	}
}

func (s *Service) unavailableOutcome(t doctypes.Type) ExtractionOutcome {
	return ExtractionOutcome{
		RawFields:     map[string]string{},
		Issues:        []string{IssueExtractionUnavailable},
		MissingFields: t.MissingFields(nil),
		Notes:         NoteExtractionFailed,
		ExtractedAt:   s.now(),
	}
}

func (s *Service) rejectedOutcome(t doctypes.Type, reason string) ExtractionOutcome {
	issues := []string{IssueExtractionRejected}
	if reason = strings.TrimSpace(reason); reason != "" {
		issues = append(issues, reason)
	}
	return ExtractionOutcome{
		RawFields:     map[string]string{},
		Issues:        issues,
		MissingFields: t.MissingFields(nil),
		Notes:         NoteExtractionUnreadable,
		ExtractedAt:   s.now(),
	}
}

// settle writes the outcome even if ctx has already expired; the write is
// guarded by the pending_extraction status.
func (s *Service) settle(ctx context.Context, doc Document, out ExtractionOutcome) error {
	writeCtx, cancel := context.WithTimeout(telemetry.Detach(ctx), settleTimeout)
	defer cancel()

	err := s.Repo.ApplyExtraction(writeCtx, doc.ID, out)
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		telemetry.Info("extraction.stale_result", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"document_id": doc.ID,
			"reason":      err.Error(),
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply extraction: %w", err)
	}
	logTransition(ctx, doc, StatusPendingExtraction, StatusPendingReview, "")
	return nil
}

// Decide records an HR verification decision on a document in review.
func (s *Service) Decide(ctx context.Context, caller identity.Identity, documentID string, req DecisionRequest) (View, error) {
	if !caller.Valid() || !caller.IsHR() {
		return View{}, ErrForbidden
	}
	target, ok := parseDecision(req.Decision)
	if !ok {
		return View{}, invalid(ReasonInvalidDecision, "decision must be verified or rejected")
	}

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return View{}, err
	}
	if doc.Status != StatusPendingReview {
		return View{}, &TransitionError{From: doc.Status, To: target, Reason: TransitionInvalid}
	}

	notes := strings.TrimSpace(req.Notes)
	rec := DecisionRecord{Status: target, Notes: notes, ReviewedBy: caller.EmployeeID, DecidedAt: s.now()}
	switch target {
	case StatusVerified:
		if len(doc.MissingFields) > 0 && !req.Override {
			return View{}, &TransitionError{
				From:    doc.Status,
				To:      target,
				Reason:  TransitionMissingFields,
				Missing: append([]string{}, doc.MissingFields...),
			}
		}
		rec.Override = req.Override && len(doc.MissingFields) > 0
		if notes == "" {
			rec.Notes = doc.Notes
		}
	case StatusRejected:
		if notes == "" {
			return View{}, invalid(ReasonNotesRequired, "notes are required when rejecting a document")
		}
	}

	if err := s.Repo.Decide(ctx, documentID, rec); err != nil {
		if errors.Is(err, ErrConflict) {
			from := doc.Status
			if latest, getErr := s.Repo.GetByID(ctx, documentID); getErr == nil {
				from = latest.Status
			}
			return View{}, &TransitionError{From: from, To: target, Reason: TransitionInvalid}
		}
		return View{}, err
	}

	metrics.IncDecision(target == StatusVerified)
	logTransition(ctx, doc, doc.Status, target, caller.EmployeeID)

	return NewView(doc.decide(rec)), nil
}

func parseDecision(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusVerified):
		return StatusVerified, true
	case string(StatusRejected):
		return StatusRejected, true
	default:
		return "", false
	}
}

// Get returns one document. Callers who may not see it get ErrNotFound so
// existence is not leaked.
func (s *Service) Get(ctx context.Context, caller identity.Identity, documentID string) (View, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return View{}, err
	}
	if !caller.CanAccess(doc.EmployeeID) {
		return View{}, ErrNotFound
	}
	return NewView(doc), nil
}

// List returns uploads newest first. Employees see their own; HR sees one
// employee when employeeID is set and everyone otherwise.
func (s *Service) List(ctx context.Context, caller identity.Identity, employeeID string, limit, offset int) ([]View, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" && caller.Valid() && caller.IsHR() {
		docs, err := s.Repo.List(ctx, clampLimit(limit), max(offset, 0))
		if err != nil {
			return nil, err
		}
		return newViews(docs), nil
	}
	if employeeID == "" {
		employeeID = caller.EmployeeID
	}
	if !caller.CanAccess(employeeID) {
		return nil, ErrForbidden
	}
	docs, err := s.Repo.ListByEmployee(ctx, employeeID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}
	return newViews(docs), nil
}

// ListAllForEmployee returns every upload of an employee, superseded ones included.
func (s *Service) ListAllForEmployee(ctx context.Context, caller identity.Identity, employeeID string) ([]View, error) {
	if !caller.CanAccess(employeeID) {
		return nil, ErrForbidden
	}
	docs, err := s.Repo.ListByEmployee(ctx, employeeID, 0, 0)
	if err != nil {
		return nil, err
	}
	return newViews(docs), nil
}

// ListPendingReview is the HR review queue, oldest upload first.
func (s *Service) ListPendingReview(ctx context.Context, caller identity.Identity, limit, offset int) ([]View, error) {
	if !caller.Valid() || !caller.IsHR() {
		return nil, ErrForbidden
	}
	docs, err := s.Repo.ListByStatus(ctx, StatusPendingReview, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}
	return newViews(docs), nil
}

// CountPendingReview returns the size of the review queue.
func (s *Service) CountPendingReview(ctx context.Context, caller identity.Identity) (int, error) {
	if !caller.Valid() || !caller.IsHR() {
		return 0, ErrForbidden
	}
	return s.Repo.CountByStatus(ctx, StatusPendingReview)
}

// PruneSuperseded deletes replaced uploads older than the retention window and
// returns how many were removed. Stored bytes are removed best-effort.
func (s *Service) PruneSuperseded(ctx context.Context) (int, error) {
	if s.Retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.Retention)
	docs, err := s.Repo.ListSuperseded(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list superseded: %w", err)
	}
	removed := 0
	for _, doc := range docs {
		if err := s.Repo.Delete(ctx, doc.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
		removed++
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Warn("document.prune_object_failed", map[string]any{
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
				"error":       err.Error(),
			})
		}
	}
	telemetry.Info("document.pruned", map[string]any{"removed": removed, "cutoff": cutoff.Format(time.RFC3339)})
	return removed, nil
}

// DeleteForEmployee removes every document of an employee along with the
// stored bytes. Object cleanup is best-effort once the rows are gone.
func (s *Service) DeleteForEmployee(ctx context.Context, caller identity.Identity, employeeID string) (int, error) {
	if !caller.Valid() || !caller.IsHR() {
		return 0, ErrForbidden
	}
	docs, err := s.Repo.DeleteByEmployee(ctx, employeeID)
	if err != nil {
		return 0, fmt.Errorf("delete documents of %s: %w", employeeID, err)
	}
	for _, doc := range docs {
		if s.Store == nil {
			break
		}
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Warn("document.delete_object_failed", map[string]any{
				"request_id":  telemetry.RequestID(ctx),
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
				"error":       err.Error(),
			})
		}
	}
	telemetry.Info("document.deleted_for_employee", map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"employee_id": employeeID,
		"actor":       caller.EmployeeID,
		"removed":     len(docs),
	})
	return len(docs), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func logTransition(ctx context.Context, doc Document, from, to Status, actor string) {
	fields := map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"document_id":       doc.ID,
		"employee_id":       doc.EmployeeID,
		"document_type":     string(doc.Type),
		"status_transition": fmt.Sprintf("%s->%s", from, to),
	}
	if actor != "" {
		fields["actor"] = actor
	}
	telemetry.Info("document.status", fields)
}

var _ Processor = (*Service)(nil)
