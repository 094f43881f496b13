package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/service"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/export"
	"github.com/noah-isme/school-community-api/pkg/response"
)

// PromoteRequest names the user receiving a second admin seat.
type PromoteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AdminHandler exposes succession and promotion endpoints.
type AdminHandler struct {
	service *service.AdminService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewAdminHandler builds a new handler.
func NewAdminHandler(svc *service.AdminService, csv *export.CSVExporter, pdf *export.PDFExporter) *AdminHandler {
	return &AdminHandler{service: svc, csv: csv, pdf: pdf}
}

// Transfer godoc
// @Summary Hand over the admin role to a successor
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.TransferRequest true "Successor"
// @Success 200 {object} response.Envelope
// @Router /admin/transfer [post]
func (h *AdminHandler) Transfer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}
	record, err := h.service.Transfer(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Promote godoc
// @Summary Grant the admin role without demoting the caller
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body PromoteRequest true "Target user"
// @Success 200 {object} response.Envelope
// @Router /admin/promote [post]
func (h *AdminHandler) Promote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid promote payload"))
		return
	}
	if err := h.service.Promote(c.Request.Context(), claims.UserID, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"promoted": req.UserID}, nil)
}

// AuditTrail godoc
// @Summary Succession audit trail
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/succession [get]
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	records, err := h.service.AuditTrail(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportAudit godoc
// @Summary Download the succession audit trail
// @Tags Admin
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /admin/succession/export [get]
func (h *AdminHandler) ExportAudit(c *gin.Context) {
	dataset, err := h.service.AuditDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("succession-audit-%s", time.Now().UTC().Format("20060102"))
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Admin Succession Audit")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
