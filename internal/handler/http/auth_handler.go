package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/utils/metrics"
)

// OAuthFlow drives the authorization-code dance with the provider.
type OAuthFlow interface {
	BeginAuthorization(ctx context.Context, provider string) (authorizationURL, state string, err error)
	CompleteAuthorization(ctx context.Context, provider, code, state string) (*models.ExternalProfile, *models.ProviderTokens, error)
}

// Authenticator reconciles identities and manages token pairs.
type Authenticator interface {
	Reconcile(ctx context.Context, profile *models.ExternalProfile, tokens *models.ProviderTokens) (*models.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// AuthHandler serves the login, callback and token endpoints.
type AuthHandler struct {
	oauth  OAuthFlow
	auth   Authenticator
	logger *zap.Logger
}

func NewAuthHandler(oauth OAuthFlow, auth Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{oauth: oauth, auth: auth, logger: logger}
}

// Authorize starts the provider login and hands the client the URL to
// redirect the browser to.
func (h *AuthHandler) Authorize(c *gin.Context) {
	provider := c.Param("provider")

	url, state, err := h.oauth.BeginAuthorization(c.Request.Context(), provider)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": url,
		"state":             state,
	})
}

type callbackRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// Callback finishes the provider login: code exchange, profile fetch,
// identity reconciliation, local tokens.
func (h *AuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, provTokens, err := h.oauth.CompleteAuthorization(ctx, provider, req.Code, req.State)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "failure").Inc()
		respondError(c, h.logger, err)
		return
	}

	result, err := h.auth.Reconcile(ctx, profile, provTokens)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "failure").Inc()
		respondError(c, h.logger, err)
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues(provider, "success").Inc()
	c.JSON(http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a fresh pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	pair, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		respondError(c, h.logger, err)
		return
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, pair)
}

// Logout acknowledges the client discarding its tokens. Tokens are
// stateless, so there is nothing to revoke server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
