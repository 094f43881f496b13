package models

import "time"

// Event is a school event users can RSVP to.
type Event struct {
	ID        string    `db:"id" json:"id"`
	ScopeID   *string   `db:"scope_id" json:"scope_id,omitempty"`
	Title     string    `db:"title" json:"title"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EventRSVP is one user's attendance mark for an event.
type EventRSVP struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
