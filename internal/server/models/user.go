// Package models defines server-side data models persisted by the
// repositories.
package models

import "time"

// Role is the name of an authority granted to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AllRoles lists every role the server knows about, in seeding order.
var AllRoles = []Role{RoleUser, RoleAdmin}

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User is an account able to obtain token pairs.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	IsActive     bool
	Roles        []Role
	CreatedAt    time.Time
}

// HasRole reports whether the user currently holds r.
func (u *User) HasRole(r Role) bool {
	for _, held := range u.Roles {
		if held == r {
			return true
		}
	}
	return false
}
