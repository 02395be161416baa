package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/telemetry"
)

const (
	progressSheet  = "Progress"
	documentsSheet = "Documents"
	notesMaxLen    = 140
)

// ExportXLSX renders the HR overview as a workbook with one progress row per
// employee and one row per current document. Fields stay masked.
func (s *Service) ExportXLSX(ctx context.Context, caller identity.Identity) ([]byte, error) {
	start := time.Now()
	ov, err := s.Overview(ctx, caller)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentsSheet); err != nil {
		return nil, fmt.Errorf("xlsx new sheet: %w", err)
	}

	writeRow(f, progressSheet, 1, []any{
		"Employee ID", "Name", "Department", "Verified", "Pending", "Rejected",
		"Types Uploaded", "Progress %",
	})
	for i, r := range ov.Employees {
		types := make([]string, 0, len(r.Summary.TypesUploaded))
		for _, t := range r.Summary.TypesUploaded {
			types = append(types, string(t))
		}
		writeRow(f, progressSheet, i+2, []any{
			r.Employee.ID,
			r.Employee.Name,
			r.Employee.Department,
			r.Summary.VerifiedCount,
			r.Summary.PendingCount,
			r.Summary.RejectedCount,
			strings.Join(types, ", "),
			r.Summary.OverallProgressPercentage,
		})
	}

	writeRow(f, documentsSheet, 1, []any{
		"Employee ID", "Document Type", "Status", "Confidence", "Missing Fields",
		"Override", "Notes", "Uploaded At",
	})
	row := 2
	for _, r := range ov.Employees {
		for _, v := range r.current {
			writeRow(f, documentsSheet, row, []any{
				v.EmployeeID,
				label(v.Type),
				string(v.Status),
				confidenceCell(v.Confidence),
				strings.Join(v.MissingFields, ", "),
				v.VerifiedOverride,
				truncate(v.Notes, notesMaxLen),
				v.UploadedAt.UTC().Format(time.RFC3339),
			})
			row++
		}
	}

	_ = f.SetColWidth(progressSheet, "A", "C", 20)
	_ = f.SetColWidth(progressSheet, "G", "G", 48)
	_ = f.SetColWidth(documentsSheet, "A", "C", 20)
	_ = f.SetColWidth(documentsSheet, "E", "E", 32)
	_ = f.SetColWidth(documentsSheet, "G", "G", 60)
	_ = f.SetColWidth(documentsSheet, "H", "H", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	telemetry.Info("export.xlsx.ok", map[string]any{
		"request_id": telemetry.RequestID(ctx),
		"employees":  len(ov.Employees),
		"documents":  row - 2,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func label(t doctypes.Type) string {
	if rules, ok := t.Rules(); ok {
		return rules.Label
	}
	return string(t)
}

func confidenceCell(c *float64) any {
	if c == nil {
		return ""
	}
	return *c
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
