package employees

import (
	"context"
	"database/sql"
	"errors"

	"onboarding-backend/internal/identity"
)

type PGRepo struct {
	DB *sql.DB
}

const employeeColumns = `id, name, email, department, designation, role, joined_at, created_at, updated_at`

func (r *PGRepo) Upsert(ctx context.Context, emp Employee) error {
	const query = `
INSERT INTO employees (id, name, email, department, designation, role, joined_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email,
  department = EXCLUDED.department,
  designation = EXCLUDED.designation,
  role = EXCLUDED.role,
  joined_at = EXCLUDED.joined_at,
  updated_at = now()`
	var joined sql.NullTime
	if emp.JoinedAt != nil {
		joined = sql.NullTime{Time: *emp.JoinedAt, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query,
		emp.ID,
		emp.Name,
		emp.Email,
		emp.Department,
		emp.Designation,
		string(emp.Role),
		joined,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 LIMIT 1`
	emp, err := scanEmployee(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return emp, nil
}

func (r *PGRepo) List(ctx context.Context) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY name ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var emp Employee
	var role string
	var joined sql.NullTime
	err := row.Scan(
		&emp.ID,
		&emp.Name,
		&emp.Email,
		&emp.Department,
		&emp.Designation,
		&role,
		&joined,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	emp.Role, _ = identity.ParseRole(role)
	if joined.Valid {
		t := joined.Time
		emp.JoinedAt = &t
	}
	return emp, nil
}
