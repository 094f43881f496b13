package models

import "time"

// AdminSuccessionRecord is an immutable audit row written once per handover.
// Promotions deliberately do not write a record, only a log line.
type AdminSuccessionRecord struct {
	ID              string    `db:"id" json:"id"`
	PreviousAdminID string    `db:"previous_admin_id" json:"previous_admin_id"`
	NewAdminID      string    `db:"new_admin_id" json:"new_admin_id"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
