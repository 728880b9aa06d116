package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserFromProfile(t *testing.T) {
	u := NewUserFromProfile(&ExternalProfile{
		Provider:      "google",
		ExternalID:    "g-1",
		Email:         "jane@example.com",
		Name:          "Jane",
		Picture:       "https://img.example.com/j.png",
		EmailVerified: true,
		Locale:        "de",
	})

	assert.Equal(t, "jane@example.com", u.Email)
	assert.True(t, u.EmailVerified)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Jane", *u.Name)
	require.NotNil(t, u.AvatarURL)
	assert.Equal(t, "de", u.Locale)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, "google", u.Metadata["oauth_provider"])
}

func TestNewUserFromProfileDefaults(t *testing.T) {
	u := NewUserFromProfile(&ExternalProfile{
		Provider:   "github",
		ExternalID: "42",
		Email:      "sam@example.com",
	})

	assert.Nil(t, u.Name)
	assert.Nil(t, u.AvatarURL)
	assert.Equal(t, "en", u.Locale)
	assert.Equal(t, "UTC", u.Timezone)
	assert.False(t, u.EmailVerified)
}
