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

type postService interface {
	Create(ctx context.Context, authorID string, req service.CreatePostRequest) (*service.CreatePostResult, error)
	ListByScope(ctx context.Context, userID, scopeID string) ([]models.Post, error)
}

type ratingService interface {
	RatePostAccuracy(ctx context.Context, postID, raterID string, req service.RateAccuracyRequest) (*service.RateAccuracyResult, error)
}

// PostHandler exposes post and accuracy-rating endpoints.
type PostHandler struct {
	posts   postService
	ratings ratingService
}

// NewPostHandler builds a new handler.
func NewPostHandler(posts postService, ratings ratingService) *PostHandler {
	return &PostHandler{posts: posts, ratings: ratings}
}

// Create godoc
// @Summary Create a post
// @Tags Posts
// @Accept json
// @Produce json
// @Param payload body service.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	result, err := h.posts.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListByScope godoc
// @Summary List posts in a scope
// @Tags Posts
// @Produce json
// @Param id path string true "Scope ID"
// @Success 200 {object} response.Envelope
// @Router /scopes/{id}/posts [get]
func (h *PostHandler) ListByScope(c *gin.Context) {
	userID := ""
	if claims := claimsFromContext(c); claims != nil {
		userID = claims.UserID
	}
	posts, err := h.posts.ListByScope(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, nil)
}

// Rate godoc
// @Summary Rate a post's accuracy
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.RateAccuracyRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/rating [put]
func (h *PostHandler) Rate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RateAccuracyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}
	result, err := h.ratings.RatePostAccuracy(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
