package models

import "time"

// AuthorizationState correlates an outbound authorization redirect with its
// callback. Each value is consumed at most once and expires after a fixed
// window, whichever comes first.
type AuthorizationState struct {
	State       string    `json:"state"`
	Provider    string    `json:"provider"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the state has passed its expiry window.
func (s *AuthorizationState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ExternalProfile is the normalized identity fetched from a provider's
// userinfo endpoint.
type ExternalProfile struct {
	Provider      string `json:"provider"`
	ExternalID    string `json:"external_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"email_verified"`
	Locale        string `json:"locale"`
	// Raw is the provider's userinfo document as returned, stored on the
	// account link for later enrichment.
	Raw map[string]any `json:"-"`
}

// ProviderTokens are the credentials returned by the provider's token
// endpoint, cached on the external account link.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}
