package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/response"
)

type accessService interface {
	Unlock(ctx context.Context, userID, scopeID, code string) (*models.UnlockResult, error)
	HasAccess(ctx context.Context, userID, scopeID string) (bool, error)
}

// UnlockRequest carries the access code presented for a scope.
type UnlockRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

// AccessHandler exposes digital key endpoints.
type AccessHandler struct {
	service accessService
}

// NewAccessHandler builds a new handler.
func NewAccessHandler(service accessService) *AccessHandler {
	return &AccessHandler{service: service}
}

// Unlock godoc
// @Summary Unlock a scope with its access code
// @Tags Access
// @Accept json
// @Produce json
// @Param id path string true "Scope ID"
// @Param payload body UnlockRequest true "Access code"
// @Success 200 {object} response.Envelope
// @Router /scopes/{id}/unlock [post]
func (h *AccessHandler) Unlock(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid unlock payload"))
		return
	}
	result, err := h.service.Unlock(c.Request.Context(), claims.UserID, c.Param("id"), req.AccessCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Check godoc
// @Summary Check whether the caller holds access to a scope
// @Tags Access
// @Produce json
// @Param id path string true "Scope ID"
// @Success 200 {object} response.Envelope
// @Router /scopes/{id}/access [get]
func (h *AccessHandler) Check(c *gin.Context) {
	userID := ""
	if claims := claimsFromContext(c); claims != nil {
		userID = claims.UserID
	}
	allowed, err := h.service.HasAccess(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"has_access": allowed}, nil)
}
