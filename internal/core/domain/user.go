package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// A User mirrors an account held by the external auth provider.
type User struct {
	ID         uuid.UUID
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	ImageURL   string
	Phone      string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
