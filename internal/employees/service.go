package employees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/telemetry"
)

var (
	// ErrInvalid is returned when an employee record fails validation.
	ErrInvalid   = errors.New("invalid employee")
	ErrForbidden = errors.New("forbidden")
)

// DocumentRemover deletes everything stored for an employee.
type DocumentRemover interface {
	DeleteForEmployee(ctx context.Context, caller identity.Identity, employeeID string) (int, error)
}

type Service struct {
	Repo Repo
	// Documents is optional. When set, Delete removes the employee's
	// documents before the record itself.
	Documents DocumentRemover
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Upsert validates and stores an employee record. Role defaults to employee.
func (s *Service) Upsert(ctx context.Context, emp Employee) (Employee, error) {
	if s == nil || s.Repo == nil {
		return Employee{}, errors.New("employees service not configured")
	}
	emp.ID = strings.TrimSpace(emp.ID)
	emp.Name = strings.TrimSpace(emp.Name)
	emp.Email = strings.TrimSpace(emp.Email)
	if emp.ID == "" || emp.Name == "" {
		return Employee{}, fmt.Errorf("%w: id and name are required", ErrInvalid)
	}
	if emp.Role == "" {
		emp.Role = identity.RoleEmployee
	} else if role, ok := identity.ParseRole(string(emp.Role)); ok {
		emp.Role = role
	} else {
		return Employee{}, fmt.Errorf("%w: unknown role %q", ErrInvalid, emp.Role)
	}
	if err := s.Repo.Upsert(ctx, emp); err != nil {
		return Employee{}, err
	}
	return s.Repo.GetByID(ctx, emp.ID)
}

func (s *Service) GetByID(ctx context.Context, id string) (Employee, error) {
	if s == nil || s.Repo == nil {
		return Employee{}, errors.New("employees service not configured")
	}
	if strings.TrimSpace(id) == "" {
		return Employee{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("employees service not configured")
	}
	return s.Repo.List(ctx)
}

// Delete removes an employee and all of their documents. Documents go first so
// a failed attempt can be retried while the employee still exists.
func (s *Service) Delete(ctx context.Context, caller identity.Identity, id string) error {
	if s == nil || s.Repo == nil {
		return errors.New("employees service not configured")
	}
	if !caller.Valid() || !caller.IsHR() {
		return ErrForbidden
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	removed := 0
	if s.Documents != nil {
		n, err := s.Documents.DeleteForEmployee(ctx, caller, id)
		if err != nil {
			return err
		}
		removed = n
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("employee.deleted", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"employee_id":       id,
		"actor":             caller.EmployeeID,
		"documents_removed": removed,
	})
	return nil
}

// Exists reports whether id is a known employee.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Seed loads a JSON array of employees, as found in SEED_EMPLOYEES.
func (s *Service) Seed(ctx context.Context, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	var list []Employee
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return 0, fmt.Errorf("decode seed employees: %w", err)
	}
	for i, emp := range list {
		if _, err := s.Upsert(ctx, emp); err != nil {
			return i, fmt.Errorf("seed employee %d: %w", i, err)
		}
	}
	return len(list), nil
}
