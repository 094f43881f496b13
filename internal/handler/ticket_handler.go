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

type ticketService interface {
	Issue(ctx context.Context, adminID string, req service.IssueTicketRequest) (*models.AdminStudentID, error)
	Claim(ctx context.Context, req service.ClaimTicketRequest) (*service.ClaimTicketResult, error)
}

// TicketHandler exposes student ID issuance and registration endpoints.
type TicketHandler struct {
	service ticketService
}

// NewTicketHandler builds a new handler.
func NewTicketHandler(service ticketService) *TicketHandler {
	return &TicketHandler{service: service}
}

// Issue godoc
// @Summary Issue a one-time student ID for registration
// @Tags Tickets
// @Accept json
// @Produce json
// @Param payload body service.IssueTicketRequest true "Ticket payload"
// @Success 201 {object} response.Envelope
// @Router /tickets [post]
func (h *TicketHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.IssueTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ticket payload"))
		return
	}
	ticket, err := h.service.Issue(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// Claim godoc
// @Summary Register an account by redeeming a student ID
// @Tags Tickets
// @Accept json
// @Produce json
// @Param payload body service.ClaimTicketRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *TicketHandler) Claim(c *gin.Context) {
	var req service.ClaimTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	result, err := h.service.Claim(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
