package models

import "strings"

// Role is the access role of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleEmployee}

// User is an account of the back office. Credentials are managed by the
// identity provider, this table only mirrors profile and role.
type User struct {
	Base
	Username   string  `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email      string  `gorm:"size:254" json:"email"`
	FirstName  string  `gorm:"size:150" json:"first_name"`
	LastName   string  `gorm:"size:150" json:"last_name"`
	Role       Role    `gorm:"size:20;not null;default:employee" json:"role"`
	Phone      *string `gorm:"size:20" json:"phone,omitempty"`
	Department string  `gorm:"size:100" json:"department,omitempty"`
	IsActive   bool    `gorm:"not null" json:"is_active"`
}

// FullName returns the display name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserSummary is the compact user shape embedded in reports.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Summary returns the compact representation of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName()}
}
