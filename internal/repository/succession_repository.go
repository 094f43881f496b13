package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-community-api/internal/models"
)

var (
	// ErrNotCurrentAdmin signals the caller lost the admin role before the
	// handover committed, e.g. a concurrent handover demoted them first.
	ErrNotCurrentAdmin = errors.New("caller is not the current admin")
	// ErrSuccessorMissing signals the successor row vanished mid-transaction.
	ErrSuccessorMissing = errors.New("successor does not exist")
)

// SuccessionRepository persists admin handovers and their audit trail.
type SuccessionRepository struct {
	db *sqlx.DB
}

// NewSuccessionRepository creates a new instance of SuccessionRepository.
func NewSuccessionRepository(db *sqlx.DB) *SuccessionRepository {
	return &SuccessionRepository{db: db}
}

// Transfer demotes the current admin to student, promotes the successor to
// admin and writes one immutable succession record, all inside a single
// transaction. Either all three writes commit or none do.
func (r *SuccessionRepository) Transfer(ctx context.Context, currentAdminID, successorID, notes string) (*models.AdminSuccessionRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin handover transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	const demoteQuery = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1 AND role = $4`
	res, err := tx.ExecContext(ctx, demoteQuery, currentAdminID, models.RoleStudent, now, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("demote current admin: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		err = ErrNotCurrentAdmin
		return nil, err
	}

	const promoteQuery = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	res, err = tx.ExecContext(ctx, promoteQuery, successorID, models.RoleAdmin, now)
	if err != nil {
		return nil, fmt.Errorf("promote successor: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		err = ErrSuccessorMissing
		return nil, err
	}

	record := &models.AdminSuccessionRecord{
		ID:              uuid.NewString(),
		PreviousAdminID: currentAdminID,
		NewAdminID:      successorID,
		Notes:           notes,
		CreatedAt:       now,
	}
	const insertQuery = `INSERT INTO admin_succession_records (id, previous_admin_id, new_admin_id, notes, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertQuery, record.ID, record.PreviousAdminID, record.NewAdminID, record.Notes, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert succession record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit handover: %w", err)
	}
	return record, nil
}

// List returns the succession audit trail, newest first.
func (r *SuccessionRepository) List(ctx context.Context) ([]models.AdminSuccessionRecord, error) {
	const query = `SELECT id, previous_admin_id, new_admin_id, notes, created_at FROM admin_succession_records ORDER BY created_at DESC`
	var records []models.AdminSuccessionRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list succession records: %w", err)
	}
	return records, nil
}
