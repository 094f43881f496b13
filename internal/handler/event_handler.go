package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/service"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/response"
)

type eventService interface {
	ToggleRSVP(ctx context.Context, eventID, userID string) (*service.RSVPResult, error)
}

// EventHandler exposes event attendance endpoints.
type EventHandler struct {
	service eventService
}

// NewEventHandler builds a new handler.
func NewEventHandler(service eventService) *EventHandler {
	return &EventHandler{service: service}
}

// ToggleRSVP godoc
// @Summary Toggle attendance on an event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/rsvp [post]
func (h *EventHandler) ToggleRSVP(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.ToggleRSVP(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
