package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/pkg/response"
)

type leaderboardService interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error)
}

// LeaderboardHandler exposes the reputation ranking endpoint.
type LeaderboardHandler struct {
	service leaderboardService
}

// NewLeaderboardHandler builds a new handler.
func NewLeaderboardHandler(service leaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Top godoc
// @Summary Reputation leaderboard
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, cacheHit, err := h.service.Top(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"cache_hit": cacheHit}
	response.JSON(c, http.StatusOK, entries, nil, meta)
}
