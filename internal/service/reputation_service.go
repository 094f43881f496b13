package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

// Reputation formula weights: posts count double, event attendance triple,
// and the author's average post credibility contributes at 1.5x.
const (
	reputationPostWeight        = 2.0
	reputationCredibilityWeight = 1.5
	reputationEventWeight       = 3.0
)

type reputationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateReputation(ctx context.Context, id string, score float64) error
}

type reputationPostRepository interface {
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	AvgCredibilityByAuthor(ctx context.Context, authorID string) (models.RatingAggregate, error)
}

type reputationEventRepository interface {
	CountAttendedByUser(ctx context.Context, userID string) (int, error)
}

// ReputationService derives the activity/participation score. It recomputes
// from source rows on every call instead of maintaining a running counter,
// so a lost-update race can only produce a stale value that the next write
// converges back to the true aggregate.
type ReputationService struct {
	users  reputationUserRepository
	posts  reputationPostRepository
	events reputationEventRepository
	logger *zap.Logger
}

// NewReputationService creates an instance of ReputationService.
func NewReputationService(users reputationUserRepository, posts reputationPostRepository, events reputationEventRepository, logger *zap.Logger) *ReputationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReputationService{users: users, posts: posts, events: events, logger: logger}
}

// Calculate recomputes and persists a user's reputation score, returning the
// new value for immediate display. Invoked after every post creation and
// RSVP toggle.
func (s *ReputationService) Calculate(ctx context.Context, userID string) (float64, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	postCount, err := s.posts.CountByAuthor(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count posts")
	}

	// With no posts yet, fall back to the user's current credibility so a
	// new account neither divides by zero nor cold-starts at zero.
	avgPostCredibility := user.CredibilityScore
	if postCount > 0 {
		agg, err := s.posts.AvgCredibilityByAuthor(ctx, userID)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average post credibility")
		}
		avgPostCredibility = agg.Average
	}

	attended, err := s.events.CountAttendedByUser(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attended events")
	}

	score := reputationPostWeight*float64(postCount) +
		reputationCredibilityWeight*avgPostCredibility +
		reputationEventWeight*float64(attended)

	if err := s.users.UpdateReputation(ctx, userID, score); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reputation score")
	}

	s.logger.Debug("reputation recomputed",
		zap.String("user_id", userID),
		zap.Float64("score", score),
		zap.Int("posts", postCount),
		zap.Int("events_attended", attended))
	return score, nil
}
