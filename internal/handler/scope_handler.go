package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/service"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/response"
)

type scopeService interface {
	Create(ctx context.Context, req service.CreateScopeRequest) (*models.Scope, error)
	Get(ctx context.Context, id string) (*models.Scope, error)
	List(ctx context.Context) ([]models.Scope, error)
	Delete(ctx context.Context, id string) error
}

// ScopeHandler exposes scope registry endpoints.
type ScopeHandler struct {
	service scopeService
}

// NewScopeHandler builds a new handler.
func NewScopeHandler(service scopeService) *ScopeHandler {
	return &ScopeHandler{service: service}
}

// Create godoc
// @Summary Create a scope
// @Tags Scopes
// @Accept json
// @Produce json
// @Param payload body service.CreateScopeRequest true "Scope payload"
// @Success 201 {object} response.Envelope
// @Router /scopes [post]
func (h *ScopeHandler) Create(c *gin.Context) {
	var req service.CreateScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scope payload"))
		return
	}
	scope, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scope)
}

// List godoc
// @Summary List all scopes
// @Tags Scopes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scopes [get]
func (h *ScopeHandler) List(c *gin.Context) {
	scopes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scopes, nil)
}

// Get godoc
// @Summary Get a scope by ID
// @Tags Scopes
// @Produce json
// @Param id path string true "Scope ID"
// @Success 200 {object} response.Envelope
// @Router /scopes/{id} [get]
func (h *ScopeHandler) Get(c *gin.Context) {
	scope, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scope, nil)
}

// Delete godoc
// @Summary Delete a scope
// @Tags Scopes
// @Produce json
// @Param id path string true "Scope ID"
// @Success 204
// @Router /scopes/{id} [delete]
func (h *ScopeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
