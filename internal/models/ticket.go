package models

import "time"

// AdminStudentID is a one-time registration ticket binding a username to a
// grade and section. The is_assigned flag transitions false to true exactly
// once, guarded against concurrent claims.
type AdminStudentID struct {
	ID         string     `db:"id" json:"id"`
	Username   string     `db:"username" json:"username"`
	StudentID  string     `db:"student_id" json:"student_id"`
	Grade      int        `db:"grade" json:"grade"`
	Section    string     `db:"section" json:"section"`
	IsAssigned bool       `db:"is_assigned" json:"is_assigned"`
	IssuedBy   string     `db:"issued_by" json:"issued_by"`
	AssignedAt *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
