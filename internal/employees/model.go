package employees

import (
	"time"

	"onboarding-backend/internal/identity"
)

// Employee is a directory record. Documents reference it by ID.
type Employee struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Department  string        `json:"department"`
	Designation string        `json:"designation"`
	Role        identity.Role `json:"role"`
	JoinedAt    *time.Time    `json:"joinedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
