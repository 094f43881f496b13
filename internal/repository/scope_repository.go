package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-community-api/internal/models"
)

// ScopeRepository provides database access for the scope registry.
type ScopeRepository struct {
	db *sqlx.DB
}

// NewScopeRepository creates a new instance of ScopeRepository.
func NewScopeRepository(db *sqlx.DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

const scopeColumns = `id, kind, name, grade_number, section_name, access_code, created_at`

// FindByID returns a scope by identifier.
func (r *ScopeRepository) FindByID(ctx context.Context, id string) (*models.Scope, error) {
	const query = `SELECT ` + scopeColumns + ` FROM scopes WHERE id = $1 LIMIT 1`
	var scope models.Scope
	if err := r.db.GetContext(ctx, &scope, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find scope by id: %w", err)
	}
	return &scope, nil
}

// FindPublic returns the single public scope if one exists.
func (r *ScopeRepository) FindPublic(ctx context.Context) (*models.Scope, error) {
	const query = `SELECT ` + scopeColumns + ` FROM scopes WHERE kind = $1 LIMIT 1`
	var scope models.Scope
	if err := r.db.GetContext(ctx, &scope, query, models.ScopePublic); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find public scope: %w", err)
	}
	return &scope, nil
}

// FindGradeByNumber returns the grade scope for a grade number.
func (r *ScopeRepository) FindGradeByNumber(ctx context.Context, gradeNumber int) (*models.Scope, error) {
	const query = `SELECT ` + scopeColumns + ` FROM scopes WHERE kind = $1 AND grade_number = $2 LIMIT 1`
	var scope models.Scope
	if err := r.db.GetContext(ctx, &scope, query, models.ScopeGrade, gradeNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade scope: %w", err)
	}
	return &scope, nil
}

// FindSectionByName returns the section scope for a section name such as "3-A".
func (r *ScopeRepository) FindSectionByName(ctx context.Context, sectionName string) (*models.Scope, error) {
	const query = `SELECT ` + scopeColumns + ` FROM scopes WHERE kind = $1 AND section_name = $2 LIMIT 1`
	var scope models.Scope
	if err := r.db.GetContext(ctx, &scope, query, models.ScopeSection, sectionName); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section scope: %w", err)
	}
	return &scope, nil
}

// List returns all scopes ordered by kind then name.
func (r *ScopeRepository) List(ctx context.Context) ([]models.Scope, error) {
	const query = `SELECT ` + scopeColumns + ` FROM scopes ORDER BY kind, grade_number NULLS FIRST, section_name NULLS FIRST`
	var scopes []models.Scope
	if err := r.db.SelectContext(ctx, &scopes, query); err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return scopes, nil
}

// Create inserts a new scope row.
func (r *ScopeRepository) Create(ctx context.Context, scope *models.Scope) error {
	if scope.ID == "" {
		scope.ID = uuid.NewString()
	}
	if scope.CreatedAt.IsZero() {
		scope.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scopes (id, kind, name, grade_number, section_name, access_code, created_at) VALUES (:id, :kind, :name, :grade_number, :section_name, :access_code, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, scope); err != nil {
		return fmt.Errorf("create scope: %w", err)
	}
	return nil
}

// CountSectionChildren counts section scopes belonging to a grade number.
func (r *ScopeRepository) CountSectionChildren(ctx context.Context, gradeNumber int) (int, error) {
	const query = `SELECT COUNT(*) FROM scopes WHERE kind = $1 AND grade_number = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.ScopeSection, gradeNumber); err != nil {
		return 0, fmt.Errorf("count section children: %w", err)
	}
	return count, nil
}

// CountKeys counts outstanding digital keys held against a scope.
func (r *ScopeRepository) CountKeys(ctx context.Context, scopeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM digital_keys WHERE scope_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scopeID); err != nil {
		return 0, fmt.Errorf("count scope keys: %w", err)
	}
	return count, nil
}

// CountContent counts posts, events and schedules filed under a scope.
func (r *ScopeRepository) CountContent(ctx context.Context, scopeID string) (posts, events, schedules int, err error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM posts WHERE scope_id = $1) AS posts,
		(SELECT COUNT(*) FROM events WHERE scope_id = $1) AS events,
		(SELECT COUNT(*) FROM schedules WHERE scope_id = $1) AS schedules`
	var counts struct {
		Posts     int `db:"posts"`
		Events    int `db:"events"`
		Schedules int `db:"schedules"`
	}
	if err := r.db.GetContext(ctx, &counts, query, scopeID); err != nil {
		return 0, 0, 0, fmt.Errorf("count scope content: %w", err)
	}
	return counts.Posts, counts.Events, counts.Schedules, nil
}

// Delete removes a scope row. Dependency checks happen in the service before
// this is called.
func (r *ScopeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM scopes WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
