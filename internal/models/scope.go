package models

import "time"

// ScopeKind distinguishes the three levels of the access namespace.
type ScopeKind string

const (
	ScopePublic  ScopeKind = "PUBLIC"
	ScopeGrade   ScopeKind = "GRADE"
	ScopeSection ScopeKind = "SECTION"
)

// Grade numbers accepted for grade scopes.
const (
	MinGradeNumber = 1
	MaxGradeNumber = 12
)

// Scope is a named access boundary that content and schedules are filed under.
// The access code is nil only for the single public scope.
type Scope struct {
	ID          string    `db:"id" json:"id"`
	Kind        ScopeKind `db:"kind" json:"kind"`
	Name        string    `db:"name" json:"name"`
	GradeNumber *int      `db:"grade_number" json:"grade_number,omitempty"`
	SectionName *string   `db:"section_name" json:"section_name,omitempty"`
	AccessCode  *string   `db:"access_code" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ScopeDependents counts the rows that block scope deletion, checked in
// order: section children, digital keys, posts, events, schedules.
type ScopeDependents struct {
	Sections  int `db:"sections"`
	Keys      int `db:"keys"`
	Posts     int `db:"posts"`
	Events    int `db:"events"`
	Schedules int `db:"schedules"`
}
