package employees

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("employee not found")

type Repo interface {
	Upsert(ctx context.Context, emp Employee) error
	GetByID(ctx context.Context, id string) (Employee, error)
	// List returns employees ordered by name, then id.
	List(ctx context.Context) ([]Employee, error)
	Delete(ctx context.Context, id string) error
}
