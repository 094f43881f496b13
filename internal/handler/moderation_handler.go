package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/response"
)

type moderationService interface {
	History(ctx context.Context, userID string) ([]models.ViolationRecord, error)
}

// ModerationHandler exposes violation history endpoints.
type ModerationHandler struct {
	service moderationService
}

// NewModerationHandler builds a new handler.
func NewModerationHandler(service moderationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

// History godoc
// @Summary Violation history for a user
// @Tags Moderation
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/violations [get]
func (h *ModerationHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	targetID := c.Param("id")
	if claims.Role != models.RoleAdmin && claims.UserID != targetID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	records, err := h.service.History(c.Request.Context(), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
