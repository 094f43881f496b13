package models

import "time"

// DigitalKey is a permanent per-user unlock record proving a scope's access
// code was presented once. Keys are created once and never updated or expired.
type DigitalKey struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ScopeID   string    `db:"scope_id" json:"scope_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UnlockResult reports the outcome of presenting an access code.
type UnlockResult struct {
	Granted     bool `json:"granted"`
	AlreadyHeld bool `json:"already_held"`
}
