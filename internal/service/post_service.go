package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type postRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByScope(ctx context.Context, scopeID string) ([]models.Post, error)
}

// CreatePostRequest represents payload for creating posts.
type CreatePostRequest struct {
	Title   string  `json:"title" validate:"required"`
	Content string  `json:"content" validate:"required"`
	ScopeID *string `json:"scope_id"`
}

// CreatePostResult carries the stored post, the moderation outcome, and the
// author's refreshed reputation.
type CreatePostResult struct {
	Post       *models.Post    `json:"post"`
	Moderation *ReviewDecision `json:"moderation,omitempty"`
	Reputation float64         `json:"reputation"`
}

// PostService is the content surface feeding the trust engines: every
// created post passes the scope access gate and the moderation review, then
// triggers a reputation recompute.
type PostService struct {
	posts      postRepository
	access     *AccessService
	moderation *ModerationService
	reputation *ReputationService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPostService creates an instance of PostService.
func NewPostService(posts postRepository, access *AccessService, moderation *ModerationService, reputation *ReputationService, validate *validator.Validate, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PostService{posts: posts, access: access, moderation: moderation, reputation: reputation, validator: validate, logger: logger}
}

// Create stores a post after the access gate and moderation review pass.
func (s *PostService) Create(ctx context.Context, authorID string, req CreatePostRequest) (*CreatePostResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create post payload")
	}

	if req.ScopeID != nil {
		allowed, err := s.access.HasAccess(ctx, authorID, *req.ScopeID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "scope is locked: present its access code first")
		}
	}

	decision, err := s.moderation.Review(ctx, authorID, req.Content)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "content rejected by moderation")
	}

	post := &models.Post{
		AuthorID:          authorID,
		ScopeID:           req.ScopeID,
		Title:             req.Title,
		Content:           req.Content,
		CredibilityRating: models.DefaultCredibility,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	reputation, err := s.reputation.Calculate(ctx, authorID)
	if err != nil {
		// The post is already committed; a failed recompute self-heals on
		// the author's next activity.
		s.logger.Warn("reputation recompute failed after post", zap.String("author_id", authorID), zap.Error(err))
	}

	return &CreatePostResult{Post: post, Moderation: decision, Reputation: reputation}, nil
}

// ListByScope returns the posts filed under a scope, provided the caller
// holds access to it.
func (s *PostService) ListByScope(ctx context.Context, userID, scopeID string) ([]models.Post, error) {
	allowed, err := s.access.HasAccess(ctx, userID, scopeID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "scope is locked: present its access code first")
	}

	posts, err := s.posts.ListByScope(ctx, scopeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, nil
}
