package models

import "time"

// Post is a community post, optionally filed under a scope. The credibility
// rating is a derived cache of the post's accuracy-rating mean on a 0-100
// scale, recomputed on every rating write.
type Post struct {
	ID                string    `db:"id" json:"id"`
	AuthorID          string    `db:"author_id" json:"author_id"`
	ScopeID           *string   `db:"scope_id" json:"scope_id,omitempty"`
	Title             string    `db:"title" json:"title"`
	Content           string    `db:"content" json:"content"`
	CredibilityRating float64   `db:"credibility_rating" json:"credibility_rating"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// AccuracyRating is one rater's 1-5 star accuracy vote on a post. One row per
// (post, rater); re-rating updates the row instead of stacking votes.
type AccuracyRating struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	RaterID   string    `db:"rater_id" json:"rater_id"`
	Rating    int       `db:"rating" json:"rating"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RatingAggregate carries the mean and count of a rating set.
type RatingAggregate struct {
	Average float64 `db:"average"`
	Count   int     `db:"count"`
}
