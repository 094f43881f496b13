package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-community-api/internal/models"
)

func newKeyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func TestDigitalKeyRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newKeyRepoMock(t)
	defer cleanup()
	repo := NewDigitalKeyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO digital_keys")).
		WithArgs(sqlmock.AnyArg(), "user-1", "scope-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	key := &models.DigitalKey{UserID: "user-1", ScopeID: "scope-1"}
	err := repo.Create(context.Background(), key)
	require.NoError(t, err)
	assert.NotEmpty(t, key.ID)
}

func TestDigitalKeyRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newKeyRepoMock(t)
	defer cleanup()
	repo := NewDigitalKeyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO digital_keys")).
		WithArgs(sqlmock.AnyArg(), "user-1", "scope-1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.DigitalKey{UserID: "user-1", ScopeID: "scope-1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestDigitalKeyRepositoryExists(t *testing.T) {
	db, mock, cleanup := newKeyRepoMock(t)
	defer cleanup()
	repo := NewDigitalKeyRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("user-1", "scope-1").
		WillReturnRows(rows)

	exists, err := repo.Exists(context.Background(), "user-1", "scope-1")
	require.NoError(t, err)
	assert.True(t, exists)
}
