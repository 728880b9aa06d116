package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/handler/http/middleware"
	"github.com/promoflow/auth-service/internal/service"
)

// ProfileManager covers the authenticated user's self-service surface.
type ProfileManager interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, p service.UpdateProfileParams) (*models.User, error)
	LinkedProviders(ctx context.Context, userID uuid.UUID) ([]*models.ExternalAccount, error)
	DisconnectProvider(ctx context.Context, userID uuid.UUID, provider string) error
}

// MeHandler serves /auth/me and provider-link management.
type MeHandler struct {
	auth    Authenticator
	profile ProfileManager
	logger  *zap.Logger
}

func NewMeHandler(auth Authenticator, profile ProfileManager, logger *zap.Logger) *MeHandler {
	return &MeHandler{auth: auth, profile: profile, logger: logger}
}

func (h *MeHandler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: "authentication failed", Code: "UNAUTHORIZED"})
	}
	return id, ok
}

// GetMe returns the authenticated user's record.
func (h *MeHandler) GetMe(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	user, err := h.auth.CurrentUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateMeRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Company   *string `json:"company"`
	Phone     *string `json:"phone"`
	Locale    *string `json:"locale"`
	Timezone  *string `json:"timezone"`
}

// UpdateMe applies a partial profile update. Absent fields are untouched.
func (h *MeHandler) UpdateMe(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.profile.UpdateProfile(c.Request.Context(), id, service.UpdateProfileParams{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Company:   req.Company,
		Phone:     req.Phone,
		Locale:    req.Locale,
		Timezone:  req.Timezone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListProviders returns the user's linked identity providers.
func (h *MeHandler) ListProviders(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	links, err := h.profile.LinkedProviders(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": links})
}

// DisconnectProvider removes one linked provider, unless it is the last.
func (h *MeHandler) DisconnectProvider(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.profile.DisconnectProvider(c.Request.Context(), id, c.Param("provider")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "provider disconnected"})
}
