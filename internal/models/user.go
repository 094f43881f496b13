package models

import "time"

// UserRole represents the available community roles.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleAlumni  UserRole = "ALUMNI"
	RoleVisitor UserRole = "VISITOR"
)

// AccountStatus is derived from the credibility score.
type AccountStatus string

const (
	StatusActive     AccountStatus = "ACTIVE"
	StatusThreatened AccountStatus = "THREATENED"
)

// DefaultCredibility is the neutral post-accuracy baseline for new accounts.
const DefaultCredibility = 50.0

// User represents an application user stored in the users table.
type User struct {
	ID               string        `db:"id" json:"id"`
	Username         string        `db:"username" json:"username"`
	PasswordHash     string        `db:"password_hash" json:"-"`
	FullName         string        `db:"full_name" json:"full_name"`
	Role             UserRole      `db:"role" json:"role"`
	AccountStatus    AccountStatus `db:"account_status" json:"account_status"`
	CredibilityScore float64       `db:"credibility_score" json:"credibility_score"`
	ReputationScore  float64       `db:"reputation_score" json:"reputation_score"`
	Grade            *int          `db:"grade" json:"grade,omitempty"`
	Section          *string       `db:"section" json:"section,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// LeaderboardEntry is a read model for the reputation leaderboard. Rank is
// assigned by the service after the ordered query returns.
type LeaderboardEntry struct {
	Rank            int     `db:"-" json:"rank"`
	UserID          string  `db:"id" json:"user_id"`
	Username        string  `db:"username" json:"username"`
	FullName        string  `db:"full_name" json:"full_name"`
	ReputationScore float64 `db:"reputation_score" json:"reputation_score"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
