// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. They are similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role is the access level carried on a user record and in every token.
//
// The wire values are lowercase ("member", "admin") and are stored as-is in
// the users.role column.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// User represents a registered library account.
//
// WHY PasswordHash HAS json:"-":
// The struct is returned from GET /auth/me. The "-" tag tells encoding/json to
// skip the field entirely, so the bcrypt hash can never leak into a response,
// even if a handler encodes the whole struct by mistake.
//
// Email is the sign-in key. It is stored lowercased (see service.NormalizeEmail) and
// the UNIQUE constraint on users.email is the source of truth for uniqueness.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Role         Role      `json:"role"      db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
