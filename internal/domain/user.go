package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCandidate Role = "Candidat"
	RoleRecruiter Role = "Recruteur"
	RoleAdmin     Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID                 string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email              string     `gorm:"size:320;uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-"`
	Role               Role       `gorm:"size:16;not null" json:"role"`
	IsActive           bool       `gorm:"not null" json:"is_active"`
	ResetCodeHash      *string    `gorm:"size:255" json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PublicUser is the identity returned to callers; it never carries the hash.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}

// NormalizeEmail is applied on every write and lookup so uniqueness and login
// use the same comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
