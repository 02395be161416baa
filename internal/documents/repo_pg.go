package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"onboarding-backend/internal/doctypes"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, employee_id, document_type, original_filename, storage_key, mime_type, size_bytes,
raw_extracted_fields, confidence_score, issues, missing_fields, verification_status, verification_notes,
verified_override, reviewed_by, uploaded_at, extracted_at, verified_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    employee_id,
    document_type,
    original_filename,
    storage_key,
    mime_type,
    size_bytes,
    raw_extracted_fields,
    issues,
    missing_fields,
    verification_status,
    verification_notes,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	rawFields, err := encodeJSON(doc.RawFields, "{}")
	if err != nil {
		return err
	}
	issues, err := encodeJSON(doc.Issues, "[]")
	if err != nil {
		return err
	}
	missing, err := encodeJSON(doc.MissingFields, "[]")
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.EmployeeID,
		string(doc.Type),
		doc.OriginalFilename,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		rawFields,
		issues,
		missing,
		string(doc.Status),
		doc.Notes,
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List lists all documents ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
ORDER BY uploaded_at DESC, id DESC
LIMIT $1 OFFSET $2`
	return r.query(ctx, query, pageLimit(limit), pageOffset(offset))
}

// ListByEmployee lists documents ordered newest-first.
func (r *PGRepo) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
WHERE employee_id = $1
ORDER BY uploaded_at DESC, id DESC
LIMIT $2 OFFSET $3`
	return r.query(ctx, query, employeeID, pageLimit(limit), pageOffset(offset))
}

// ListByStatus lists documents in a status ordered oldest-first.
func (r *PGRepo) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
WHERE verification_status = $1
ORDER BY uploaded_at ASC, id ASC
LIMIT $2 OFFSET $3`
	return r.query(ctx, query, string(status), pageLimit(limit), pageOffset(offset))
}

// CountByStatus counts documents in a status.
func (r *PGRepo) CountByStatus(ctx context.Context, status Status) (int, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE verification_status = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, string(status)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ApplyExtraction settles extraction; the status guard makes stale or
// duplicate completions no-ops.
func (r *PGRepo) ApplyExtraction(ctx context.Context, id string, out ExtractionOutcome) error {
	const query = `
UPDATE documents
SET raw_extracted_fields = $1,
    confidence_score = $2,
    issues = $3,
    missing_fields = $4,
    verification_notes = $5,
    extracted_at = $6,
    verification_status = 'pending_review'
WHERE id = $7 AND verification_status = 'pending_extraction'`

	rawFields, err := encodeJSON(out.RawFields, "{}")
	if err != nil {
		return err
	}
	issues, err := encodeJSON(out.Issues, "[]")
	if err != nil {
		return err
	}
	missing, err := encodeJSON(out.MissingFields, "[]")
	if err != nil {
		return err
	}
	var confidence sql.NullFloat64
	if out.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *out.Confidence, Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, query, rawFields, confidence, issues, missing, out.Notes, out.ExtractedAt, id)
	if err != nil {
		return err
	}
	return r.checkConditional(ctx, res, id)
}

// Decide records an HR decision while the document is pending_review.
func (r *PGRepo) Decide(ctx context.Context, id string, rec DecisionRecord) error {
	const query = `
UPDATE documents
SET verification_status = $1,
    verification_notes = $2,
    verified_override = $3,
    reviewed_by = $4,
    verified_at = $5
WHERE id = $6 AND verification_status = 'pending_review'`

	res, err := r.DB.ExecContext(ctx, query, string(rec.Status), rec.Notes, rec.Override, rec.ReviewedBy, rec.DecidedAt, id)
	if err != nil {
		return err
	}
	return r.checkConditional(ctx, res, id)
}

// ListSuperseded lists replaced documents uploaded before cutoff.
func (r *PGRepo) ListSuperseded(ctx context.Context, cutoff time.Time) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d
WHERE d.uploaded_at < $1
  AND EXISTS (
    SELECT 1 FROM documents n
    WHERE n.employee_id = d.employee_id
      AND n.document_type = d.document_type
      AND (n.uploaded_at > d.uploaded_at OR (n.uploaded_at = d.uploaded_at AND n.id > d.id))
  )
ORDER BY d.uploaded_at ASC`
	return r.query(ctx, query, cutoff)
}

// Delete removes a document row.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmployee removes an employee's rows in one statement.
func (r *PGRepo) DeleteByEmployee(ctx context.Context, employeeID string) ([]Document, error) {
	query := `DELETE FROM documents WHERE employee_id = $1 RETURNING ` + documentColumns
	return r.query(ctx, query, employeeID)
}

// checkConditional separates a lost race from a missing row.
func (r *PGRepo) checkConditional(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var docType, status string
	var rawFields, issues, missing []byte
	var confidence sql.NullFloat64
	var reviewedBy sql.NullString
	var extractedAt, verifiedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.EmployeeID,
		&docType,
		&doc.OriginalFilename,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.SizeBytes,
		&rawFields,
		&confidence,
		&issues,
		&missing,
		&status,
		&doc.Notes,
		&doc.VerifiedOverride,
		&reviewedBy,
		&doc.UploadedAt,
		&extractedAt,
		&verifiedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Type = doctypes.Type(docType)
	doc.Status = Status(status)
	if err := decodeJSON(rawFields, &doc.RawFields); err != nil {
		return Document{}, fmt.Errorf("decode raw_extracted_fields: %w", err)
	}
	if err := decodeJSON(issues, &doc.Issues); err != nil {
		return Document{}, fmt.Errorf("decode issues: %w", err)
	}
	if err := decodeJSON(missing, &doc.MissingFields); err != nil {
		return Document{}, fmt.Errorf("decode missing_fields: %w", err)
	}
	if confidence.Valid {
		c := confidence.Float64
		doc.Confidence = &c
	}
	if reviewedBy.Valid {
		doc.ReviewedBy = reviewedBy.String
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.ExtractedAt = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		doc.VerifiedAt = &t
	}
	return doc, nil
}

func encodeJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func decodeJSON(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// pageLimit maps a non-positive limit to NULL, which Postgres treats as no limit.
func pageLimit(limit int) sql.NullInt64 {
	if limit <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(limit), Valid: true}
}

func pageOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ Repo = (*PGRepo)(nil)
