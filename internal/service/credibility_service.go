package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

// CredibilityThreshold is the score below which an account is threatened.
// Crossing back over it restores the account; this is a two-way machine, not
// a ban.
const CredibilityThreshold = 25.0

// ratingScale maps the 1-5 star mean onto the 0-100 credibility scale.
const ratingScale = 20.0

type credibilityPostRepository interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
	UpsertRating(ctx context.Context, rating *models.AccuracyRating) error
	RatingAggregateForPost(ctx context.Context, postID string) (models.RatingAggregate, error)
	RatingAggregateForAuthor(ctx context.Context, authorID string) (models.RatingAggregate, error)
	UpdateCredibility(ctx context.Context, id string, rating float64) error
}

type credibilityUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateCredibility(ctx context.Context, id string, score float64, status models.AccountStatus) error
}

// RateAccuracyRequest is one rater's accuracy vote on a post.
type RateAccuracyRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// RateAccuracyResult reports the stored vote and the author's new standing.
type RateAccuracyResult struct {
	PostCredibility   float64              `json:"post_credibility"`
	AuthorCredibility float64              `json:"author_credibility"`
	AuthorStatus      models.AccountStatus `json:"author_status"`
}

// CredibilityService derives trust scores from peer accuracy ratings. Every
// rating write recomputes the full aggregate so the stored score is always
// exactly (mean rating) x 20, never a drifted running total.
type CredibilityService struct {
	posts     credibilityPostRepository
	users     credibilityUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCredibilityService creates an instance of CredibilityService.
func NewCredibilityService(posts credibilityPostRepository, users credibilityUserRepository, validate *validator.Validate, logger *zap.Logger) *CredibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CredibilityService{posts: posts, users: users, validator: validate, logger: logger}
}

// RatePostAccuracy upserts the rater's vote, then recomputes the post's own
// rating and the author's overall credibility from scratch.
func (s *CredibilityService) RatePostAccuracy(ctx context.Context, postID, raterID string, req RateAccuracyRequest) (*RateAccuracyResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	rating := &models.AccuracyRating{PostID: postID, RaterID: raterID, Rating: req.Rating}
	if err := s.posts.UpsertRating(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating")
	}

	postAgg, err := s.posts.RatingAggregateForPost(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate post ratings")
	}
	postCredibility := scaleRating(postAgg)
	if err := s.posts.UpdateCredibility(ctx, postID, postCredibility); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store post credibility")
	}

	authorAgg, err := s.posts.RatingAggregateForAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate author ratings")
	}
	authorCredibility := scaleRating(authorAgg)

	status, err := s.updateCredibility(ctx, post.AuthorID, authorCredibility)
	if err != nil {
		return nil, err
	}

	return &RateAccuracyResult{
		PostCredibility:   postCredibility,
		AuthorCredibility: authorCredibility,
		AuthorStatus:      status,
	}, nil
}

// ApplyPenalty reduces a user's credibility by the given amount, flooring at
// zero, and runs the account-status machine. Used by the moderation
// escalator's output.
func (s *CredibilityService) ApplyPenalty(ctx context.Context, userID string, penalty float64) (float64, models.AccountStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return 0, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	score := user.CredibilityScore - penalty
	if score < 0 {
		score = 0
	}
	status, err := s.updateCredibility(ctx, userID, score)
	if err != nil {
		return 0, "", err
	}
	return score, status, nil
}

// updateCredibility persists the score and applies the threshold-crossing
// status transitions in both directions.
func (s *CredibilityService) updateCredibility(ctx context.Context, userID string, score float64) (models.AccountStatus, error) {
	status := models.StatusActive
	if score < CredibilityThreshold {
		status = models.StatusThreatened
	}

	if err := s.users.UpdateCredibility(ctx, userID, score, status); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store credibility score")
	}

	if status == models.StatusThreatened {
		s.logger.Warn("account threatened by low credibility",
			zap.String("user_id", userID),
			zap.Float64("score", score))
	}
	return status, nil
}

func scaleRating(agg models.RatingAggregate) float64 {
	if agg.Count == 0 {
		return models.DefaultCredibility
	}
	return agg.Average * ratingScale
}
