package domain

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Roles        []UserRole `json:"roles"`
	Active       bool       `json:"active"`
	CreatedAt    Timestamp  `json:"created_at"`

	// Unknown holds fields written by other versions; kept for round-trips.
	Unknown map[string]json.RawMessage `json:"-"`
}

type CreateUserInput struct {
	Username string     `json:"username" validate:"required,min=3,max=64"`
	Password string     `json:"password" validate:"required,min=8"`
	Name     string     `json:"name" validate:"required,min=2"`
	Email    string     `json:"email" validate:"omitempty,email"`
	Roles    []UserRole `json:"roles" validate:"required,min=1,dive,oneof=classifier executor approver admin"`
}

type UpdateUserInput struct {
	Name     *string     `json:"name,omitempty" validate:"omitempty,min=2"`
	Email    *string     `json:"email,omitempty" validate:"omitempty,email"`
	Password *string     `json:"password,omitempty" validate:"omitempty,min=8"`
	Roles    *[]UserRole `json:"roles,omitempty" validate:"omitempty,min=1,dive,oneof=classifier executor approver admin"`
	Active   *bool       `json:"active,omitempty"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserRole string

const (
	RoleClassifier UserRole = "classifier"
	RoleExecutor   UserRole = "executor"
	RoleApprover   UserRole = "approver"
	RoleAdmin      UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleClassifier, RoleExecutor, RoleApprover, RoleAdmin:
		return true
	default:
		return false
	}
}

// HasRole reports whether the user holds role. Admin holds every role.
func (u *User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// DisplayName is the name shown on records, falling back to the username.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}

// NormalizeUsername is the key used for case-insensitive username lookups.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
