package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-community-api/internal/models"
)

// PostRepository provides database access for posts and accuracy ratings.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new instance of PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, author_id, scope_id, title, content, credibility_rating, created_at, updated_at`

// FindByID returns a post by identifier.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id = $1 LIMIT 1`
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return &post, nil
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO posts (id, author_id, scope_id, title, content, credibility_rating, created_at, updated_at) VALUES (:id, :author_id, :scope_id, :title, :content, :credibility_rating, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// ListByScope returns posts filed under a scope, newest first.
func (r *PostRepository) ListByScope(ctx context.Context, scopeID string) ([]models.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE scope_id = $1 ORDER BY created_at DESC`
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, scopeID); err != nil {
		return nil, fmt.Errorf("list posts by scope: %w", err)
	}
	return posts, nil
}

// CountByAuthor counts a user's posts.
func (r *PostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM posts WHERE author_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, authorID); err != nil {
		return 0, fmt.Errorf("count posts by author: %w", err)
	}
	return count, nil
}

// AvgCredibilityByAuthor returns the mean credibility rating across a user's
// posts together with the post count.
func (r *PostRepository) AvgCredibilityByAuthor(ctx context.Context, authorID string) (models.RatingAggregate, error) {
	const query = `SELECT COALESCE(AVG(credibility_rating), 0) AS average, COUNT(*) AS count FROM posts WHERE author_id = $1`
	var agg models.RatingAggregate
	if err := r.db.GetContext(ctx, &agg, query, authorID); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("average post credibility: %w", err)
	}
	return agg, nil
}

// UpdateCredibility overwrites a post's derived credibility rating.
func (r *PostRepository) UpdateCredibility(ctx context.Context, id string, rating float64) error {
	const query = `UPDATE posts SET credibility_rating = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("update post credibility: %w", err)
	}
	return nil
}

// UpsertRating stores one rating row per (post, rater); re-rating replaces
// the previous vote instead of stacking.
func (r *PostRepository) UpsertRating(ctx context.Context, rating *models.AccuracyRating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now

	const query = `INSERT INTO accuracy_ratings (id, post_id, rater_id, rating, created_at, updated_at)
VALUES (:id, :post_id, :rater_id, :rating, :created_at, :updated_at)
ON CONFLICT (post_id, rater_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("upsert accuracy rating: %w", err)
	}
	return nil
}

// RatingAggregateForPost returns the mean and count of a post's ratings.
func (r *PostRepository) RatingAggregateForPost(ctx context.Context, postID string) (models.RatingAggregate, error) {
	const query = `SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count FROM accuracy_ratings WHERE post_id = $1`
	var agg models.RatingAggregate
	if err := r.db.GetContext(ctx, &agg, query, postID); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("aggregate post ratings: %w", err)
	}
	return agg, nil
}

// RatingAggregateForAuthor returns the mean and count across all ratings on
// all of an author's posts. The credibility engine recomputes from this full
// aggregate on every rating write.
func (r *PostRepository) RatingAggregateForAuthor(ctx context.Context, authorID string) (models.RatingAggregate, error) {
	const query = `SELECT COALESCE(AVG(ar.rating), 0) AS average, COUNT(ar.id) AS count
FROM accuracy_ratings ar
JOIN posts p ON p.id = ar.post_id
WHERE p.author_id = $1`
	var agg models.RatingAggregate
	if err := r.db.GetContext(ctx, &agg, query, authorID); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("aggregate author ratings: %w", err)
	}
	return agg, nil
}
