// Package profiles composes per-employee onboarding views from the document
// engine and the employee directory. Everything is recomputed per call.
package profiles

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/documents"
	"onboarding-backend/internal/employees"
	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/progress"
)

const defaultConcurrency = 8

// DocumentReader is the slice of the engine the composer reads from.
type DocumentReader interface {
	ListAllForEmployee(ctx context.Context, caller identity.Identity, employeeID string) ([]documents.View, error)
	CountPendingReview(ctx context.Context, caller identity.Identity) (int, error)
}

// EmployeeReader is the slice of the directory the composer reads from.
type EmployeeReader interface {
	GetByID(ctx context.Context, id string) (employees.Employee, error)
	List(ctx context.Context) ([]employees.Employee, error)
}

type Service struct {
	Documents DocumentReader
	Employees EmployeeReader
	// Concurrency bounds per-employee fan-out on the dashboard.
	Concurrency int
}

// Profile is an employee with every upload, grouped and summarized.
type Profile struct {
	Employee employees.Employee
	// Documents are newest first, superseded uploads included.
	Documents []documents.View
	ByType    map[doctypes.Type][]documents.View
	Current   map[doctypes.Type]documents.View
	Summary   progress.Summary
}

// EmployeeProgress is one dashboard row.
type EmployeeProgress struct {
	Employee employees.Employee
	Summary  progress.Summary
	current  []documents.View
}

// Overview is the HR dashboard.
type Overview struct {
	EmployeeCount      int
	PendingReviewCount int
	CompletedCount     int
	AverageProgress    int
	Employees          []EmployeeProgress
}

// Dashboard is what GET /dashboard returns for either role.
type Dashboard struct {
	Role     identity.Role
	Self     *progress.Summary
	Overview *Overview
}

// Compose builds an employee's profile. HR only.
func (s *Service) Compose(ctx context.Context, caller identity.Identity, employeeID string) (Profile, error) {
	if !caller.Valid() || !caller.IsHR() {
		return Profile{}, documents.ErrForbidden
	}

	var emp employees.Employee
	var views []documents.View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emp, err = s.Employees.GetByID(gctx, employeeID)
		return err
	})
	g.Go(func() error {
		var err error
		views, err = s.Documents.ListAllForEmployee(gctx, caller, employeeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}

	documents.SortNewestFirst(views)
	byType := make(map[doctypes.Type][]documents.View)
	for _, v := range views {
		byType[v.Type] = append(byType[v.Type], v)
	}
	return Profile{
		Employee:  emp,
		Documents: views,
		ByType:    byType,
		Current:   documents.Current(views),
		Summary:   progress.Summarize(views),
	}, nil
}

// MyProgress summarizes the caller's own uploads.
func (s *Service) MyProgress(ctx context.Context, caller identity.Identity) (progress.Summary, error) {
	if !caller.Valid() {
		return progress.Summary{}, documents.ErrForbidden
	}
	views, err := s.Documents.ListAllForEmployee(ctx, caller, caller.EmployeeID)
	if err != nil {
		return progress.Summary{}, err
	}
	return progress.Summarize(views), nil
}

// Dashboard returns the HR overview for HR and the caller's summary otherwise.
func (s *Service) Dashboard(ctx context.Context, caller identity.Identity) (Dashboard, error) {
	if !caller.Valid() {
		return Dashboard{}, documents.ErrForbidden
	}
	if !caller.IsHR() {
		summary, err := s.MyProgress(ctx, caller)
		if err != nil {
			return Dashboard{}, err
		}
		return Dashboard{Role: caller.Role, Self: &summary}, nil
	}
	overview, err := s.Overview(ctx, caller)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Role: caller.Role, Overview: &overview}, nil
}

// Overview computes progress for every non-HR directory entry. HR only.
func (s *Service) Overview(ctx context.Context, caller identity.Identity) (Overview, error) {
	if !caller.Valid() || !caller.IsHR() {
		return Overview{}, documents.ErrForbidden
	}

	all, err := s.Employees.List(ctx)
	if err != nil {
		return Overview{}, err
	}
	// HR staff review documents; they are not onboarding themselves.
	list := make([]employees.Employee, 0, len(all))
	for _, emp := range all {
		if emp.Role != identity.RoleHR {
			list = append(list, emp)
		}
	}

	rows := make([]EmployeeProgress, len(list))
	var pending int

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)
	g.Go(func() error {
		var err error
		pending, err = s.Documents.CountPendingReview(gctx, caller)
		return err
	})
	for i, emp := range list {
		g.Go(func() error {
			views, err := s.Documents.ListAllForEmployee(gctx, caller, emp.ID)
			if err != nil {
				return err
			}
			latest := documents.Current(views)
			current := make([]documents.View, 0, len(latest))
			for _, t := range doctypes.All {
				if v, ok := latest[t]; ok {
					current = append(current, v)
				}
			}
			rows[i] = EmployeeProgress{Employee: emp, Summary: progress.Summarize(views), current: current}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Summary.OverallProgressPercentage < rows[j].Summary.OverallProgressPercentage
	})

	ov := Overview{EmployeeCount: len(rows), PendingReviewCount: pending, Employees: rows}
	total := 0
	for _, r := range rows {
		total += r.Summary.OverallProgressPercentage
		if r.Summary.Complete() {
			ov.CompletedCount++
		}
	}
	if len(rows) > 0 {
		ov.AverageProgress = total / len(rows)
	}
	return ov, nil
}
