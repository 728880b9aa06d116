package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/service"
)

// UserDirectory is the admin view over user records.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, skip, limit int, query string) (*service.UserList, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// UserHandler serves the admin user endpoints.
type UserHandler struct {
	users  UserDirectory
	logger *zap.Logger
}

func NewUserHandler(users UserDirectory, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// List returns a page of users. ?q= narrows by name, email or company.
func (h *UserHandler) List(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	page, err := h.users.List(c.Request.Context(), skip, limit, c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get returns one user by id.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete deactivates a user. The record stays for audit and reactivation.
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
