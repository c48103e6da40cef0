package models

import "time"

// Role determines which parts of the portal a user can access.
type Role string

const (
	RoleAnnotator Role = "annotator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAnnotator || r == RoleAdmin
}

// User is a portal account. The JSON tags define the on-disk layout of
// users.json, so renaming a field changes the wire format.
type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	IsActive     bool       `json:"is_active"`
}
