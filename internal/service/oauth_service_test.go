package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/config"
	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/repository/memory"
)

// fakeProvider is a minimal identity provider: a token endpoint that
// accepts one known code and a userinfo endpoint guarded by the issued
// access token.
func fakeProvider(t *testing.T, validCode string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != validCode {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "provider-access",
			"refresh_token": "provider-refresh",
			"token_type": "Bearer",
			"expires_in": 3600,
			"scope": "openid email profile"
		}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "108204",
			"email": "jane@example.com",
			"verified_email": true,
			"name": "Jane Doe",
			"picture": "https://img.example.com/jane.png",
			"locale": "en"
		}`))
	})
	return httptest.NewServer(mux)
}

func newOAuthService(providerURL string) (*OAuthService, *memory.StateStore) {
	states := memory.NewStateStore()
	providers := map[string]config.OAuthProviderConfig{
		"google": {
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://app.example.com/callback",
			AuthURL:      providerURL + "/authorize",
			TokenURL:     providerURL + "/token",
			UserInfoURL:  providerURL + "/userinfo",
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
	svc := NewOAuthService(providers, states, config.OAuthConfig{
		StateTTL:       10 * time.Minute,
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
	return svc, states
}

func TestOAuthService_BeginAuthorization(t *testing.T) {
	svc, _ := newOAuthService("https://idp.example.com")

	authURL, state, err := svc.BeginAuthorization(context.Background(), "google")
	require.NoError(t, err)
	require.NotEmpty(t, state)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(parsed.Path, "/authorize"))

	q := parsed.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://app.example.com/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestOAuthService_BeginAuthorizationStatesAreUnique(t *testing.T) {
	svc, _ := newOAuthService("https://idp.example.com")

	_, first, err := svc.BeginAuthorization(context.Background(), "google")
	require.NoError(t, err)
	_, second, err := svc.BeginAuthorization(context.Background(), "google")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestOAuthService_BeginAuthorizationUnknownProvider(t *testing.T) {
	svc, _ := newOAuthService("https://idp.example.com")

	_, _, err := svc.BeginAuthorization(context.Background(), "myspace")
	assert.ErrorIs(t, err, domainErrors.ErrOAuthProviderNotFound)
}

func TestOAuthService_BeginAuthorizationUnconfiguredProvider(t *testing.T) {
	states := memory.NewStateStore()
	svc := NewOAuthService(map[string]config.OAuthProviderConfig{
		"google": {}, // present but missing credentials
	}, states, config.OAuthConfig{StateTTL: time.Minute, RequestTimeout: time.Second}, zap.NewNop())

	_, _, err := svc.BeginAuthorization(context.Background(), "google")
	assert.ErrorIs(t, err, domainErrors.ErrOAuthProviderNotFound)
}

func TestOAuthService_CompleteAuthorization(t *testing.T) {
	provider := fakeProvider(t, "good-code")
	defer provider.Close()

	svc, _ := newOAuthService(provider.URL)
	ctx := context.Background()

	_, state, err := svc.BeginAuthorization(ctx, "google")
	require.NoError(t, err)

	profile, tokens, err := svc.CompleteAuthorization(ctx, "google", "good-code", state)
	require.NoError(t, err)

	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "108204", profile.ExternalID)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "jane@example.com", profile.Raw["email"])

	assert.Equal(t, "provider-access", tokens.AccessToken)
	assert.Equal(t, "provider-refresh", tokens.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tokens.ExpiresAt, time.Minute)
}

func TestOAuthService_CompleteAuthorizationUnknownState(t *testing.T) {
	provider := fakeProvider(t, "good-code")
	defer provider.Close()

	svc, _ := newOAuthService(provider.URL)

	_, _, err := svc.CompleteAuthorization(context.Background(), "google", "good-code", "forged-state")
	assert.ErrorIs(t, err, domainErrors.ErrOAuthStateNotFound)
}

func TestOAuthService_CompleteAuthorizationStateIsSingleUse(t *testing.T) {
	provider := fakeProvider(t, "good-code")
	defer provider.Close()

	svc, _ := newOAuthService(provider.URL)
	ctx := context.Background()

	_, state, err := svc.BeginAuthorization(ctx, "google")
	require.NoError(t, err)

	_, _, err = svc.CompleteAuthorization(ctx, "google", "good-code", state)
	require.NoError(t, err)

	_, _, err = svc.CompleteAuthorization(ctx, "google", "good-code", state)
	assert.ErrorIs(t, err, domainErrors.ErrOAuthStateNotFound)
}

func TestOAuthService_CompleteAuthorizationBadCodeBurnsState(t *testing.T) {
	provider := fakeProvider(t, "good-code")
	defer provider.Close()

	svc, _ := newOAuthService(provider.URL)
	ctx := context.Background()

	_, state, err := svc.BeginAuthorization(ctx, "google")
	require.NoError(t, err)

	_, _, err = svc.CompleteAuthorization(ctx, "google", "stolen-code", state)
	assert.ErrorIs(t, err, domainErrors.ErrOAuthExchange)

	// The exchange failed but the state is still gone.
	_, _, err = svc.CompleteAuthorization(ctx, "google", "good-code", state)
	assert.ErrorIs(t, err, domainErrors.ErrOAuthStateNotFound)
}

func TestOAuthService_CompleteAuthorizationProviderMismatch(t *testing.T) {
	provider := fakeProvider(t, "good-code")
	defer provider.Close()

	svc := func() *OAuthService {
		states := memory.NewStateStore()
		providers := map[string]config.OAuthProviderConfig{
			"google": {
				ClientID: "id", ClientSecret: "secret",
				AuthURL: provider.URL + "/authorize", TokenURL: provider.URL + "/token",
				UserInfoURL: provider.URL + "/userinfo",
			},
			"github": {
				ClientID: "id", ClientSecret: "secret",
				AuthURL: provider.URL + "/authorize", TokenURL: provider.URL + "/token",
				UserInfoURL: provider.URL + "/userinfo",
			},
		}
		return NewOAuthService(providers, states, config.OAuthConfig{
			StateTTL: time.Minute, RequestTimeout: time.Second,
		}, zap.NewNop())
	}()

	_, state, err := svc.BeginAuthorization(context.Background(), "google")
	require.NoError(t, err)

	// A state issued for one provider cannot complete another's callback.
	_, _, err = svc.CompleteAuthorization(context.Background(), "github", "good-code", state)
	assert.ErrorIs(t, err, domainErrors.ErrOAuthStateNotFound)
}

func TestParseProfile_OIDCShape(t *testing.T) {
	body := []byte(`{
		"sub": "abc-123",
		"email": "sam@example.com",
		"email_verified": true,
		"name": "Sam",
		"avatar_url": "https://img.example.com/sam.png"
	}`)

	p, err := parseProfile("github", body)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", p.ExternalID)
	assert.Equal(t, "sam@example.com", p.Email)
	assert.True(t, p.EmailVerified)
	assert.Equal(t, "https://img.example.com/sam.png", p.Picture)
}

func TestParseProfile_NumericID(t *testing.T) {
	p, err := parseProfile("github", []byte(`{"id": 583231, "email": "o@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "583231", p.ExternalID)
}
