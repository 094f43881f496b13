package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type mockTicketRepo struct {
	outstanding map[string]*models.AdminStudentID
	byStudentID map[string]*models.AdminStudentID
	createErrs  []error
	created     []*models.AdminStudentID
	claimErr    error
	claimedUser *models.User
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *models.AdminStudentID) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	ticket.ID = "ticket-1"
	m.created = append(m.created, ticket)
	return nil
}

func (m *mockTicketRepo) FindOutstandingByUsername(ctx context.Context, username string) (*models.AdminStudentID, error) {
	if t, ok := m.outstanding[username]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTicketRepo) FindByStudentID(ctx context.Context, studentID string) (*models.AdminStudentID, error) {
	if t, ok := m.byStudentID[studentID]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTicketRepo) Claim(ctx context.Context, studentID, username string, user *models.User) (*models.AdminStudentID, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	ticket, ok := m.byStudentID[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	user.ID = "user-1"
	m.claimedUser = user
	return ticket, nil
}

type mockTicketUsers struct {
	registered map[string]*models.User
}

func (m *mockTicketUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.registered[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func TestTicketServiceIssue(t *testing.T) {
	tickets := &mockTicketRepo{}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	ticket, err := svc.Issue(context.Background(), "admin-1", IssueTicketRequest{Username: "newkid", Grade: 9, Section: "9-A"})
	require.NoError(t, err)
	assert.Len(t, ticket.StudentID, 8)
	assert.Equal(t, "admin-1", ticket.IssuedBy)
	assert.Equal(t, "newkid", ticket.Username)
}

func TestTicketServiceIssueOutstandingConflict(t *testing.T) {
	tickets := &mockTicketRepo{outstanding: map[string]*models.AdminStudentID{
		"newkid": {ID: "ticket-0", Username: "newkid"},
	}}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	_, err := svc.Issue(context.Background(), "admin-1", IssueTicketRequest{Username: "newkid", Grade: 9, Section: "9-A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTicketServiceIssueRetriesCollision(t *testing.T) {
	tickets := &mockTicketRepo{createErrs: []error{repository.ErrStudentIDTaken, repository.ErrStudentIDTaken}}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	ticket, err := svc.Issue(context.Background(), "admin-1", IssueTicketRequest{Username: "newkid", Grade: 9, Section: "9-A"})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.StudentID)
	assert.Len(t, tickets.created, 1)
}

func TestTicketServiceClaim(t *testing.T) {
	tickets := &mockTicketRepo{byStudentID: map[string]*models.AdminStudentID{
		"AB12CD34": {ID: "ticket-1", Username: "newkid", StudentID: "AB12CD34", Grade: 9, Section: "9-A"},
	}}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	result, err := svc.Claim(context.Background(), ClaimTicketRequest{
		StudentID: "AB12CD34",
		Username:  "newkid",
		FullName:  "New Kid",
		Password:  "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, models.DefaultCredibility, result.User.CredibilityScore)
	require.NotNil(t, result.User.Grade)
	assert.Equal(t, 9, *result.User.Grade)
	require.NotNil(t, result.User.Section)
	assert.Equal(t, "9-A", *result.User.Section)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("secret123")))
}

func TestTicketServiceClaimUsernameRegistered(t *testing.T) {
	users := &mockTicketUsers{registered: map[string]*models.User{"newkid": {ID: "user-9", Username: "newkid"}}}
	svc := NewTicketService(&mockTicketRepo{}, users, nil, zap.NewNop())

	_, err := svc.Claim(context.Background(), ClaimTicketRequest{
		StudentID: "AB12CD34",
		Username:  "newkid",
		FullName:  "New Kid",
		Password:  "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTicketServiceClaimAlreadyUsed(t *testing.T) {
	tickets := &mockTicketRepo{
		byStudentID: map[string]*models.AdminStudentID{
			"AB12CD34": {ID: "ticket-1", Username: "newkid", StudentID: "AB12CD34", Grade: 9, Section: "9-A", IsAssigned: true},
		},
		claimErr: repository.ErrTicketAssigned,
	}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	_, err := svc.Claim(context.Background(), ClaimTicketRequest{
		StudentID: "AB12CD34",
		Username:  "newkid",
		FullName:  "New Kid",
		Password:  "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTicketClaimed.Code, appErrors.FromError(err).Code)
}

func TestTicketServiceClaimUsernameMismatch(t *testing.T) {
	tickets := &mockTicketRepo{
		byStudentID: map[string]*models.AdminStudentID{
			"AB12CD34": {ID: "ticket-1", Username: "newkid", StudentID: "AB12CD34", Grade: 9, Section: "9-A"},
		},
		claimErr: repository.ErrUsernameMismatch,
	}
	svc := NewTicketService(tickets, &mockTicketUsers{}, nil, zap.NewNop())

	_, err := svc.Claim(context.Background(), ClaimTicketRequest{
		StudentID: "AB12CD34",
		Username:  "otherkid",
		FullName:  "Other Kid",
		Password:  "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
