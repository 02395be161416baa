package employees

import (
	"context"
	"errors"
	"testing"

	"onboarding-backend/internal/identity"
)

func TestUpsertValidatesAndDefaultsRole(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, Employee{ID: "E1"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for missing name, got %v", err)
	}
	if _, err := svc.Upsert(ctx, Employee{ID: "E1", Name: "A", Role: "admin"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown role, got %v", err)
	}

	emp, err := svc.Upsert(ctx, Employee{ID: " E1 ", Name: " Asha Rao "})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if emp.ID != "E1" || emp.Name != "Asha Rao" || emp.Role != identity.RoleEmployee {
		t.Fatalf("unexpected employee %+v", emp)
	}
	if emp.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	updated, err := svc.Upsert(ctx, Employee{ID: "E1", Name: "Asha R", Role: "HR"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(emp.CreatedAt) || updated.Role != identity.RoleHR {
		t.Fatalf("update should keep created_at and set role, got %+v", updated)
	}
}

func TestExistsAndList(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	for _, e := range []Employee{{ID: "E2", Name: "Bala"}, {ID: "E1", Name: "Asha"}} {
		if _, err := svc.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	ok, err := svc.Exists(ctx, "E2")
	if err != nil || !ok {
		t.Fatalf("expected E2 to exist, got %v %v", ok, err)
	}
	ok, err = svc.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing to not exist, got %v %v", ok, err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "E1" || list[1].ID != "E2" {
		t.Fatalf("expected name order, got %+v", list)
	}
}

func TestSeed(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	n, err := svc.Seed(ctx, `[{"id":"E1","name":"Asha","role":"hr"},{"id":"E2","name":"Bala","joinedAt":"2026-01-05T00:00:00Z"}]`)
	if err != nil || n != 2 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	emp, err := svc.GetByID(ctx, "E2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if emp.JoinedAt == nil || emp.JoinedAt.Year() != 2026 {
		t.Fatalf("joined_at not seeded: %+v", emp)
	}

	if n, err := svc.Seed(ctx, "  "); err != nil || n != 0 {
		t.Fatalf("blank seed should be a no-op, got %d %v", n, err)
	}
	if _, err := svc.Seed(ctx, "{"); err == nil {
		t.Fatalf("expected decode error")
	}
}

type recordingRemover struct {
	calls []string
	err   error
}

func (r *recordingRemover) DeleteForEmployee(ctx context.Context, caller identity.Identity, employeeID string) (int, error) {
	r.calls = append(r.calls, employeeID)
	return 2, r.err
}

func TestDeleteRemovesDocumentsFirst(t *testing.T) {
	repo := NewMemoryRepo()
	docs := &recordingRemover{}
	svc := &Service{Repo: repo, Documents: docs}
	ctx := context.Background()
	hr := identity.Identity{EmployeeID: "HR-1", Role: identity.RoleHR}
	if _, err := svc.Upsert(ctx, Employee{ID: "E1", Name: "Asha"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := svc.Delete(ctx, identity.Identity{EmployeeID: "E1", Role: identity.RoleEmployee}, "E1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("employee delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, hr, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(docs.calls) != 0 {
		t.Fatalf("documents must not be touched for refused deletes, got %v", docs.calls)
	}

	docs.err = errors.New("store offline")
	if err := svc.Delete(ctx, hr, "E1"); err == nil {
		t.Fatalf("expected document removal failure to abort delete")
	}
	if ok, _ := svc.Exists(ctx, "E1"); !ok {
		t.Fatalf("employee must survive a failed document removal")
	}

	docs.err = nil
	if err := svc.Delete(ctx, hr, "E1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := svc.Exists(ctx, "E1"); ok {
		t.Fatalf("employee should be gone")
	}
	if len(docs.calls) != 2 || docs.calls[1] != "E1" {
		t.Fatalf("unexpected document removals %v", docs.calls)
	}
}
