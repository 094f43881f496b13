package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-community-api/internal/models"
)

// ErrDuplicateKey signals that the (user, scope) pair already holds a key.
// The digital_keys table carries a uniqueness constraint on the pair, so two
// concurrent first-time unlocks cannot both insert.
var ErrDuplicateKey = errors.New("digital key already exists")

const pgUniqueViolation = "23505"

// DigitalKeyRepository provides database access for permanent unlock records.
type DigitalKeyRepository struct {
	db *sqlx.DB
}

// NewDigitalKeyRepository creates a new instance of DigitalKeyRepository.
func NewDigitalKeyRepository(db *sqlx.DB) *DigitalKeyRepository {
	return &DigitalKeyRepository{db: db}
}

// Find returns the key held by a user for a scope.
func (r *DigitalKeyRepository) Find(ctx context.Context, userID, scopeID string) (*models.DigitalKey, error) {
	const query = `SELECT id, user_id, scope_id, created_at FROM digital_keys WHERE user_id = $1 AND scope_id = $2 LIMIT 1`
	var key models.DigitalKey
	if err := r.db.GetContext(ctx, &key, query, userID, scopeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find digital key: %w", err)
	}
	return &key, nil
}

// Exists reports whether a user holds a key for a scope.
func (r *DigitalKeyRepository) Exists(ctx context.Context, userID, scopeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM digital_keys WHERE user_id = $1 AND scope_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, scopeID); err != nil {
		return false, fmt.Errorf("check digital key: %w", err)
	}
	return exists, nil
}

// Create inserts a key row. A unique-constraint violation on (user_id,
// scope_id) is surfaced as ErrDuplicateKey so callers can treat the race as
// an idempotent success.
func (r *DigitalKeyRepository) Create(ctx context.Context, key *models.DigitalKey) error {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO digital_keys (id, user_id, scope_id, created_at) VALUES (:id, :user_id, :scope_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, key); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create digital key: %w", err)
	}
	return nil
}
