package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
)

type mockCredibilityPosts struct {
	posts     map[string]*models.Post
	postAggs  map[string]models.RatingAggregate
	authorAgg models.RatingAggregate
	upserted  *models.AccuracyRating
	stored    map[string]float64
}

func (m *mockCredibilityPosts) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m.posts[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCredibilityPosts) UpsertRating(ctx context.Context, rating *models.AccuracyRating) error {
	m.upserted = rating
	return nil
}

func (m *mockCredibilityPosts) RatingAggregateForPost(ctx context.Context, postID string) (models.RatingAggregate, error) {
	return m.postAggs[postID], nil
}

func (m *mockCredibilityPosts) RatingAggregateForAuthor(ctx context.Context, authorID string) (models.RatingAggregate, error) {
	return m.authorAgg, nil
}

func (m *mockCredibilityPosts) UpdateCredibility(ctx context.Context, id string, rating float64) error {
	if m.stored == nil {
		m.stored = make(map[string]float64)
	}
	m.stored[id] = rating
	return nil
}

type mockCredibilityUsers struct {
	users  map[string]*models.User
	scores map[string]float64
	status map[string]models.AccountStatus
}

func (m *mockCredibilityUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCredibilityUsers) UpdateCredibility(ctx context.Context, id string, score float64, status models.AccountStatus) error {
	if m.scores == nil {
		m.scores = make(map[string]float64)
		m.status = make(map[string]models.AccountStatus)
	}
	m.scores[id] = score
	m.status[id] = status
	return nil
}

func TestCredibilityServiceRatePostAccuracy(t *testing.T) {
	posts := &mockCredibilityPosts{
		posts:     map[string]*models.Post{"post-1": {ID: "post-1", AuthorID: "author-1"}},
		postAggs:  map[string]models.RatingAggregate{"post-1": {Average: 4.0, Count: 2}},
		authorAgg: models.RatingAggregate{Average: 3.0, Count: 5},
	}
	users := &mockCredibilityUsers{users: map[string]*models.User{"author-1": {ID: "author-1"}}}
	svc := NewCredibilityService(posts, users, nil, zap.NewNop())

	result, err := svc.RatePostAccuracy(context.Background(), "post-1", "rater-1", RateAccuracyRequest{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.PostCredibility)
	assert.Equal(t, 60.0, result.AuthorCredibility)
	assert.Equal(t, models.StatusActive, result.AuthorStatus)
	assert.Equal(t, 80.0, posts.stored["post-1"])
	assert.Equal(t, 60.0, users.scores["author-1"])
}

func TestCredibilityServiceRateOutOfRange(t *testing.T) {
	svc := NewCredibilityService(&mockCredibilityPosts{}, &mockCredibilityUsers{}, nil, zap.NewNop())

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.RatePostAccuracy(context.Background(), "post-1", "rater-1", RateAccuracyRequest{Rating: rating})
		assert.Error(t, err, "rating %d should be rejected", rating)
	}
}

func TestCredibilityServiceThresholdCrossing(t *testing.T) {
	// A unanimous 1-star record puts the author at 20, below the threshold.
	posts := &mockCredibilityPosts{
		posts:     map[string]*models.Post{"post-1": {ID: "post-1", AuthorID: "author-1"}},
		postAggs:  map[string]models.RatingAggregate{"post-1": {Average: 1.0, Count: 3}},
		authorAgg: models.RatingAggregate{Average: 1.0, Count: 3},
	}
	users := &mockCredibilityUsers{users: map[string]*models.User{"author-1": {ID: "author-1", AccountStatus: models.StatusActive}}}
	svc := NewCredibilityService(posts, users, nil, zap.NewNop())

	result, err := svc.RatePostAccuracy(context.Background(), "post-1", "rater-1", RateAccuracyRequest{Rating: 1})
	require.NoError(t, err)
	assert.Equal(t, 20.0, result.AuthorCredibility)
	assert.Equal(t, models.StatusThreatened, result.AuthorStatus)

	// Better ratings lift the mean back over the threshold and restore the
	// account.
	posts.authorAgg = models.RatingAggregate{Average: 2.0, Count: 6}
	posts.postAggs["post-1"] = models.RatingAggregate{Average: 2.0, Count: 6}
	result, err = svc.RatePostAccuracy(context.Background(), "post-1", "rater-2", RateAccuracyRequest{Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 40.0, result.AuthorCredibility)
	assert.Equal(t, models.StatusActive, result.AuthorStatus)
}

func TestCredibilityServiceExactThresholdIsActive(t *testing.T) {
	posts := &mockCredibilityPosts{
		posts:     map[string]*models.Post{"post-1": {ID: "post-1", AuthorID: "author-1"}},
		postAggs:  map[string]models.RatingAggregate{"post-1": {Average: 1.25, Count: 4}},
		authorAgg: models.RatingAggregate{Average: 1.25, Count: 4},
	}
	users := &mockCredibilityUsers{users: map[string]*models.User{"author-1": {ID: "author-1"}}}
	svc := NewCredibilityService(posts, users, nil, zap.NewNop())

	result, err := svc.RatePostAccuracy(context.Background(), "post-1", "rater-1", RateAccuracyRequest{Rating: 1})
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.AuthorCredibility)
	assert.Equal(t, models.StatusActive, result.AuthorStatus)
}

func TestCredibilityServiceApplyPenaltyFloorsAtZero(t *testing.T) {
	users := &mockCredibilityUsers{users: map[string]*models.User{"user-1": {ID: "user-1", CredibilityScore: 10}}}
	svc := NewCredibilityService(&mockCredibilityPosts{}, users, nil, zap.NewNop())

	score, status, err := svc.ApplyPenalty(context.Background(), "user-1", 50)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, models.StatusThreatened, status)
}

func TestScaleRatingDefaults(t *testing.T) {
	assert.Equal(t, models.DefaultCredibility, scaleRating(models.RatingAggregate{}))
	assert.Equal(t, 100.0, scaleRating(models.RatingAggregate{Average: 5, Count: 1}))
}
