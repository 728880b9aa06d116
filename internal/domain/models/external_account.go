package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalAccount links a local user to one identity-provider account.
// (provider, provider_user_id) is unique across the table; (user_id, provider)
// is unique so a repeat login updates the existing link in place.
type ExternalAccount struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Provider       string         `json:"provider"`
	ProviderUserID string         `json:"provider_user_id"`
	ProviderEmail  *string        `json:"provider_email,omitempty"`
	ProfileData    map[string]any `json:"profile_data,omitempty"`
	AccessToken    *string        `json:"-"`
	RefreshToken   *string        `json:"-"`
	TokenExpiresAt *time.Time     `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
