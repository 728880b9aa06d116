package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. The set is closed but enforced by application logic, not the schema.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local identity record. Users are never hard-deleted; the
// IsActive flag deactivates them instead.
type User struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Name          *string        `json:"name,omitempty"`
	AvatarURL     *string        `json:"avatar_url,omitempty"`
	Company       *string        `json:"company,omitempty"`
	Phone         *string        `json:"phone,omitempty"`
	Locale        string         `json:"locale"`
	Timezone      string         `json:"timezone"`
	Role          string         `json:"role"`
	IsActive      bool           `json:"is_active"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
}

// NewUserFromProfile builds a user record with product defaults from a
// verified external identity. The caller persists it.
func NewUserFromProfile(p *ExternalProfile) *User {
	u := &User{
		ID:            uuid.New(),
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		Locale:        "en",
		Timezone:      "UTC",
		Role:          RoleUser,
		IsActive:      true,
		Metadata: map[string]any{
			"oauth_provider": p.Provider,
		},
	}
	if p.Name != "" {
		u.Name = &p.Name
	}
	if p.Picture != "" {
		u.AvatarURL = &p.Picture
	}
	if p.Locale != "" {
		u.Locale = p.Locale
	}
	return u
}
