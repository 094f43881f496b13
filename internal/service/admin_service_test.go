package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type mockAdminUsers struct {
	users map[string]*models.User
	roles map[string]models.UserRole
}

func (m *mockAdminUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminUsers) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	if m.roles == nil {
		m.roles = make(map[string]models.UserRole)
	}
	m.roles[id] = role
	return nil
}

type mockSuccession struct {
	err     error
	records []models.AdminSuccessionRecord
}

func (m *mockSuccession) Transfer(ctx context.Context, currentAdminID, successorID, notes string) (*models.AdminSuccessionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	record := models.AdminSuccessionRecord{
		ID:              "rec-1",
		PreviousAdminID: currentAdminID,
		NewAdminID:      successorID,
		Notes:           notes,
		CreatedAt:       time.Now(),
	}
	m.records = append(m.records, record)
	return &record, nil
}

func (m *mockSuccession) List(ctx context.Context) ([]models.AdminSuccessionRecord, error) {
	return m.records, nil
}

func adminFixture() *mockAdminUsers {
	return &mockAdminUsers{users: map[string]*models.User{
		"admin-1":   {ID: "admin-1", Role: models.RoleAdmin},
		"student-1": {ID: "student-1", Role: models.RoleStudent},
	}}
}

func TestAdminServiceTransfer(t *testing.T) {
	succession := &mockSuccession{}
	svc := NewAdminService(adminFixture(), succession, nil, zap.NewNop())

	record, err := svc.Transfer(context.Background(), "admin-1", TransferRequest{SuccessorID: "student-1", Notes: "end of term"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", record.PreviousAdminID)
	assert.Equal(t, "student-1", record.NewAdminID)
	assert.Equal(t, "end of term", record.Notes)
}

func TestAdminServiceTransferToSelf(t *testing.T) {
	svc := NewAdminService(adminFixture(), &mockSuccession{}, nil, zap.NewNop())

	_, err := svc.Transfer(context.Background(), "admin-1", TransferRequest{SuccessorID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdminServiceTransferCallerNotAdmin(t *testing.T) {
	svc := NewAdminService(adminFixture(), &mockSuccession{}, nil, zap.NewNop())

	_, err := svc.Transfer(context.Background(), "student-1", TransferRequest{SuccessorID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdminServiceTransferLostRace(t *testing.T) {
	succession := &mockSuccession{err: repository.ErrNotCurrentAdmin}
	svc := NewAdminService(adminFixture(), succession, nil, zap.NewNop())

	_, err := svc.Transfer(context.Background(), "admin-1", TransferRequest{SuccessorID: "student-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAdminServicePromote(t *testing.T) {
	users := adminFixture()
	svc := NewAdminService(users, &mockSuccession{}, nil, zap.NewNop())

	err := svc.Promote(context.Background(), "admin-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, users.roles["student-1"])

	// The caller's own role is untouched. Promotion adds admins, it never
	// demotes.
	_, touched := users.roles["admin-1"]
	assert.False(t, touched)
}

func TestAdminServicePromoteSelf(t *testing.T) {
	svc := NewAdminService(adminFixture(), &mockSuccession{}, nil, zap.NewNop())

	err := svc.Promote(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdminServicePromoteAlreadyAdmin(t *testing.T) {
	users := adminFixture()
	users.users["admin-2"] = &models.User{ID: "admin-2", Role: models.RoleAdmin}
	svc := NewAdminService(users, &mockSuccession{}, nil, zap.NewNop())

	err := svc.Promote(context.Background(), "admin-1", "admin-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAdminServiceAuditDataset(t *testing.T) {
	succession := &mockSuccession{records: []models.AdminSuccessionRecord{{
		PreviousAdminID: "admin-1",
		NewAdminID:      "student-1",
		Notes:           "graduation",
		CreatedAt:       time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC),
	}}}
	svc := NewAdminService(adminFixture(), succession, nil, zap.NewNop())

	dataset, err := svc.AuditDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Previous Admin", "New Admin", "Notes"}, dataset.Headers)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "2026-06-30 09:00", dataset.Rows[0]["Date"])
	assert.Equal(t, "graduation", dataset.Rows[0]["Notes"])
}
