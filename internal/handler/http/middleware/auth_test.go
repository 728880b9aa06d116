package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoflow/auth-service/internal/config"
	"github.com/promoflow/auth-service/internal/infrastructure/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newVerifier(t *testing.T) *security.JWTService {
	t.Helper()
	svc, err := security.NewJWTService(config.JWTConfig{
		Secret:          "test-secret-at-least-32-bytes-long!",
		Algorithm:       "HS256",
		Issuer:          "test",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func protectedRouter(verifier TokenVerifier, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(verifier)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "role": c.GetString(ContextRole)})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidToken(t *testing.T) {
	verifier := newVerifier(t)
	r := protectedRouter(verifier)

	subject := uuid.NewString()
	token, err := verifier.Issue(subject, "a@b.com", "user", security.TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), subject)
}

func TestAuth_MissingHeader(t *testing.T) {
	r := protectedRouter(newVerifier(t))

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuth_MalformedHeader(t *testing.T) {
	verifier := newVerifier(t)
	r := protectedRouter(verifier)

	token, err := verifier.Issue(uuid.NewString(), "a@b.com", "user", security.TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	for _, header := range []string{"Basic abc", token, "Bearer"} {
		w := get(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	verifier := newVerifier(t)
	r := protectedRouter(verifier)

	// A refresh token must not grant API access.
	token, err := verifier.Issue(uuid.NewString(), "a@b.com", "user", security.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	verifier := newVerifier(t)
	r := protectedRouter(verifier)

	token, err := verifier.Issue(uuid.NewString(), "a@b.com", "user", security.TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	verifier := newVerifier(t)
	r := protectedRouter(verifier, RequireRole("admin"))

	userToken, err := verifier.Issue(uuid.NewString(), "u@b.com", "user", security.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	adminToken, err := verifier.Issue(uuid.NewString(), "a@b.com", "admin", security.TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+adminToken).Code)
}
