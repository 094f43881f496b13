package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-community-api/internal/models"
)

func newScopeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestScopeRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newScopeRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	grade := 9
	rows := sqlmock.NewRows([]string{"id", "kind", "name", "grade_number", "section_name", "access_code", "created_at"}).
		AddRow("scope-1", "GRADE", "Grade 9", grade, nil, "code-9", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, kind, name, grade_number, section_name, access_code, created_at FROM scopes WHERE id = $1`)).
		WithArgs("scope-1").
		WillReturnRows(rows)

	scope, err := repo.FindByID(context.Background(), "scope-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScopeGrade, scope.Kind)
	require.NotNil(t, scope.GradeNumber)
	assert.Equal(t, 9, *scope.GradeNumber)
}

func TestScopeRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newScopeRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("scope-99").
		WillReturnError(sql.ErrNoRows)

	scope, err := repo.FindByID(context.Background(), "scope-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, scope)
}

func TestScopeRepositoryCountContent(t *testing.T) {
	db, mock, cleanup := newScopeRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	rows := sqlmock.NewRows([]string{"posts", "events", "schedules"}).AddRow(3, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM posts WHERE scope_id = $1)")).
		WithArgs("scope-1").
		WillReturnRows(rows)

	posts, events, schedules, err := repo.CountContent(context.Background(), "scope-1")
	require.NoError(t, err)
	assert.Equal(t, 3, posts)
	assert.Equal(t, 1, events)
	assert.Equal(t, 0, schedules)
}

func TestScopeRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newScopeRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM scopes WHERE id = $1`)).
		WithArgs("scope-99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "scope-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
