package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-community-api/internal/models"
)

// ViolationRepository persists the append-only violation log.
type ViolationRepository struct {
	db *sqlx.DB
}

// NewViolationRepository creates a new instance of ViolationRepository.
func NewViolationRepository(db *sqlx.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Create appends a violation record. Records are never mutated, only counted.
func (r *ViolationRepository) Create(ctx context.Context, record *models.ViolationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO violations (id, user_id, violation_type, severity, reason, created_at) VALUES (:id, :user_id, :violation_type, :severity, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create violation record: %w", err)
	}
	return nil
}

// CountByUser counts a user's prior violations.
func (r *ViolationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM violations WHERE user_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's violation history, newest first.
func (r *ViolationRepository) ListByUser(ctx context.Context, userID string) ([]models.ViolationRecord, error) {
	const query = `SELECT id, user_id, violation_type, severity, reason, created_at FROM violations WHERE user_id = $1 ORDER BY created_at DESC`
	var records []models.ViolationRecord
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return records, nil
}
