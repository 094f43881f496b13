package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-community-api/internal/models"
)

var (
	// ErrStudentIDTaken signals a generated student ID collided with an
	// existing ticket. Callers retry with a fresh ID.
	ErrStudentIDTaken = errors.New("student id already exists")
	// ErrTicketAssigned signals the ticket was already claimed.
	ErrTicketAssigned = errors.New("ticket already assigned")
	// ErrUsernameMismatch signals the claiming username does not match the
	// one the ticket was issued for.
	ErrUsernameMismatch = errors.New("username does not match ticket")
)

// TicketRepository persists one-time registration tickets.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new instance of TicketRepository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, username, student_id, grade, section, is_assigned, issued_by, assigned_at, created_at`

// Create inserts a new ticket. A unique violation on student_id surfaces as
// ErrStudentIDTaken so the service can regenerate and retry.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.AdminStudentID) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO admin_student_ids (id, username, student_id, grade, section, is_assigned, issued_by, assigned_at, created_at) VALUES (:id, :username, :student_id, :grade, :section, :is_assigned, :issued_by, :assigned_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrStudentIDTaken
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// FindOutstandingByUsername returns an unassigned ticket bound to the
// username, matched case-insensitively.
func (r *TicketRepository) FindOutstandingByUsername(ctx context.Context, username string) (*models.AdminStudentID, error) {
	const query = `SELECT ` + ticketColumns + ` FROM admin_student_ids WHERE LOWER(username) = LOWER($1) AND is_assigned = FALSE LIMIT 1`
	var ticket models.AdminStudentID
	if err := r.db.GetContext(ctx, &ticket, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find outstanding ticket: %w", err)
	}
	return &ticket, nil
}

// FindByStudentID returns a ticket by its generated student ID.
func (r *TicketRepository) FindByStudentID(ctx context.Context, studentID string) (*models.AdminStudentID, error) {
	const query = `SELECT ` + ticketColumns + ` FROM admin_student_ids WHERE student_id = $1 LIMIT 1`
	var ticket models.AdminStudentID
	if err := r.db.GetContext(ctx, &ticket, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find ticket by student id: %w", err)
	}
	return &ticket, nil
}

// Claim registers the new user and marks the ticket assigned inside one
// transaction. The ticket row is locked for the duration, and the final
// update is guarded by is_assigned = FALSE: a concurrent claim that slipped
// past the lock wait observes zero affected rows and fails cleanly.
func (r *TicketRepository) Claim(ctx context.Context, studentID, username string, user *models.User) (*models.AdminStudentID, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT ` + ticketColumns + ` FROM admin_student_ids WHERE student_id = $1 FOR UPDATE`
	var ticket models.AdminStudentID
	if err = tx.GetContext(ctx, &ticket, lockQuery, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock ticket: %w", err)
	}

	if ticket.IsAssigned {
		err = ErrTicketAssigned
		return nil, err
	}
	if !strings.EqualFold(ticket.Username, username) {
		err = ErrUsernameMismatch
		return nil, err
	}

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	const insertUserQuery = `INSERT INTO users (id, username, password_hash, full_name, role, account_status, credibility_score, reputation_score, grade, section, created_at, updated_at) VALUES (:id, :username, :password_hash, :full_name, :role, :account_status, :credibility_score, :reputation_score, :grade, :section, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		return nil, fmt.Errorf("insert claimed user: %w", err)
	}

	const assignQuery = `UPDATE admin_student_ids SET is_assigned = TRUE, assigned_at = $2 WHERE id = $1 AND is_assigned = FALSE`
	res, err := tx.ExecContext(ctx, assignQuery, ticket.ID, now)
	if err != nil {
		return nil, fmt.Errorf("assign ticket: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		err = ErrTicketAssigned
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	ticket.IsAssigned = true
	ticket.AssignedAt = &now
	return &ticket, nil
}
