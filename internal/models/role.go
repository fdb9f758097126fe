// Package models defines the domain types of the security engine: roles,
// status flags, bounded credentials, user records, audit events and the
// role to capability mapping.
package models

// Role is a coarse permission tier. Its numeric value is the persisted code.
type Role uint8

const (
	RoleGuest  Role = 0
	RoleNormal Role = 1
	RoleAdmin  Role = 2
	RoleSuper  Role = 3
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "GUEST"
	case RoleNormal:
		return "NORMAL"
	case RoleAdmin:
		return "ADMIN"
	case RoleSuper:
		return "SUPER"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether r is a defined role code.
func (r Role) Valid() bool {
	return r <= RoleSuper
}

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool {
	return r > other
}
