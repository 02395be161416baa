// Package identity carries the verified caller through every engine call.
package identity

import "strings"

// Role is the caller's authorization role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
)

// ParseRole maps a claim value to a Role. Unknown values are rejected.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleEmployee:
		return RoleEmployee, true
	case RoleHR:
		return RoleHR, true
	default:
		return "", false
	}
}

// Identity is the authenticated (employee id, role) pair.
type Identity struct {
	EmployeeID string
	Role       Role
}

// IsHR reports whether the caller holds the HR role.
func (id Identity) IsHR() bool {
	return id.Role == RoleHR
}

// Valid reports whether the identity can be used for authorization.
func (id Identity) Valid() bool {
	return id.EmployeeID != "" && (id.Role == RoleHR || id.Role == RoleEmployee)
}

// CanAccess reports whether the caller may read data owned by employeeID.
func (id Identity) CanAccess(employeeID string) bool {
	if !id.Valid() {
		return false
	}
	return id.IsHR() || id.EmployeeID == employeeID
}
