package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type mockScopeFinder struct {
	scopes map[string]*models.Scope
}

func (m *mockScopeFinder) FindByID(ctx context.Context, id string) (*models.Scope, error) {
	if s, ok := m.scopes[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockKeyRepo struct {
	keys      map[string]bool
	createErr error
	created   int
}

func keyKey(userID, scopeID string) string { return userID + "|" + scopeID }

func (m *mockKeyRepo) Find(ctx context.Context, userID, scopeID string) (*models.DigitalKey, error) {
	if m.keys[keyKey(userID, scopeID)] {
		return &models.DigitalKey{UserID: userID, ScopeID: scopeID}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockKeyRepo) Exists(ctx context.Context, userID, scopeID string) (bool, error) {
	return m.keys[keyKey(userID, scopeID)], nil
}

func (m *mockKeyRepo) Create(ctx context.Context, key *models.DigitalKey) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	m.keys[keyKey(key.UserID, key.ScopeID)] = true
	m.created++
	return nil
}

func strPtr(s string) *string { return &s }

func gradeScope(id, code string) *models.Scope {
	grade := 9
	return &models.Scope{ID: id, Kind: models.ScopeGrade, Name: "Grade 9", GradeNumber: &grade, AccessCode: strPtr(code)}
}

func TestAccessServiceUnlock(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"scope-1": gradeScope("scope-1", "SECRET9")}}
	keys := &mockKeyRepo{}
	svc := NewAccessService(scopes, keys, zap.NewNop())

	result, err := svc.Unlock(context.Background(), "user-1", "scope-1", "SECRET9")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.False(t, result.AlreadyHeld)
	assert.Equal(t, 1, keys.created)
}

func TestAccessServiceUnlockIdempotent(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"scope-1": gradeScope("scope-1", "SECRET9")}}
	keys := &mockKeyRepo{keys: map[string]bool{keyKey("user-1", "scope-1"): true}}
	svc := NewAccessService(scopes, keys, zap.NewNop())

	// A second unlock succeeds without re-checking the code, even when the
	// presented code is wrong.
	result, err := svc.Unlock(context.Background(), "user-1", "scope-1", "WRONG")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.True(t, result.AlreadyHeld)
	assert.Equal(t, 0, keys.created)
}

func TestAccessServiceUnlockWrongCode(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"scope-1": gradeScope("scope-1", "SECRET9")}}
	keys := &mockKeyRepo{}
	svc := NewAccessService(scopes, keys, zap.NewNop())

	result, err := svc.Unlock(context.Background(), "user-1", "scope-1", "GUESS")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIncorrectCode.Code, appErr.Code)
	assert.Nil(t, result)
	assert.Equal(t, 0, keys.created)
}

func TestAccessServiceUnlockLostInsertRace(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"scope-1": gradeScope("scope-1", "SECRET9")}}
	keys := &mockKeyRepo{createErr: repository.ErrDuplicateKey}
	svc := NewAccessService(scopes, keys, zap.NewNop())

	result, err := svc.Unlock(context.Background(), "user-1", "scope-1", "SECRET9")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.True(t, result.AlreadyHeld)
}

func TestAccessServiceUnlockScopeMissing(t *testing.T) {
	svc := NewAccessService(&mockScopeFinder{}, &mockKeyRepo{}, zap.NewNop())

	_, err := svc.Unlock(context.Background(), "user-1", "scope-99", "SECRET9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceHasAccessPublic(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{
		"public": {ID: "public", Kind: models.ScopePublic, Name: "community"},
	}}
	svc := NewAccessService(scopes, &mockKeyRepo{}, zap.NewNop())

	allowed, err := svc.HasAccess(context.Background(), "", "public")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAccessServiceHasAccessRequiresKey(t *testing.T) {
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"scope-1": gradeScope("scope-1", "SECRET9")}}
	keys := &mockKeyRepo{keys: map[string]bool{keyKey("holder", "scope-1"): true}}
	svc := NewAccessService(scopes, keys, zap.NewNop())

	allowed, err := svc.HasAccess(context.Background(), "holder", "scope-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.HasAccess(context.Background(), "stranger", "scope-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}
