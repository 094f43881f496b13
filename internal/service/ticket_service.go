package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

const (
	studentIDLength  = 8
	studentIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	issueMaxAttempts = 5
)

type ticketRepository interface {
	Create(ctx context.Context, ticket *models.AdminStudentID) error
	FindOutstandingByUsername(ctx context.Context, username string) (*models.AdminStudentID, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.AdminStudentID, error)
	Claim(ctx context.Context, studentID, username string, user *models.User) (*models.AdminStudentID, error)
}

type ticketUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// IssueTicketRequest is the admin payload for issuing a registration ticket.
type IssueTicketRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Grade    int    `json:"grade" validate:"required,min=1,max=12"`
	Section  string `json:"section" validate:"required"`
}

// ClaimTicketRequest is the registration payload redeeming a ticket.
type ClaimTicketRequest struct {
	StudentID string `json:"student_id" validate:"required,len=8"`
	Username  string `json:"username" validate:"required,min=3"`
	FullName  string `json:"full_name" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
}

// ClaimTicketResult returns the created account and the consumed ticket.
type ClaimTicketResult struct {
	User   *models.User           `json:"user"`
	Ticket *models.AdminStudentID `json:"ticket"`
}

// TicketService issues one-time student IDs and redeems them race-safely.
type TicketService struct {
	tickets   ticketRepository
	users     ticketUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTicketService creates an instance of TicketService.
func NewTicketService(tickets ticketRepository, users ticketUserRepository, validate *validator.Validate, logger *zap.Logger) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TicketService{tickets: tickets, users: users, validator: validate, logger: logger}
}

// Issue generates a random student ID and binds it to the username. The
// generated ID is retried on the rare unique collision.
func (s *TicketService) Issue(ctx context.Context, adminID string, req IssueTicketRequest) (*models.AdminStudentID, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue payload")
	}

	if _, err := s.tickets.FindOutstandingByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already has an outstanding ticket")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check outstanding tickets")
	}

	var ticket *models.AdminStudentID
	for attempt := 0; attempt < issueMaxAttempts; attempt++ {
		studentID, err := randomStudentID()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate student id")
		}
		candidate := &models.AdminStudentID{
			Username:  req.Username,
			StudentID: studentID,
			Grade:     req.Grade,
			Section:   req.Section,
			IssuedBy:  adminID,
		}
		err = s.tickets.Create(ctx, candidate)
		if err == nil {
			ticket = candidate
			break
		}
		if errors.Is(err, repository.ErrStudentIDTaken) {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ticket")
	}
	if ticket == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "could not generate a unique student id")
	}

	s.logger.Info("student id issued",
		zap.String("ticket_id", ticket.ID),
		zap.String("username", ticket.Username),
		zap.String("issued_by", adminID))
	return ticket, nil
}

// Claim redeems a ticket during registration. The repository serializes
// concurrent claims with a row lock and a guarded update; exactly one
// concurrent claim succeeds, the rest receive a clean conflict.
func (s *TicketService) Claim(ctx context.Context, req ClaimTicketRequest) (*ClaimTicketResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid claim payload")
	}

	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	ticketPeek, err := s.tickets.FindByStudentID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student id not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ticket")
	}

	grade := ticketPeek.Grade
	section := ticketPeek.Section
	user := &models.User{
		Username:         req.Username,
		PasswordHash:     string(passwordHash),
		FullName:         req.FullName,
		Role:             models.RoleStudent,
		AccountStatus:    models.StatusActive,
		CredibilityScore: models.DefaultCredibility,
		Grade:            &grade,
		Section:          &section,
	}

	ticket, err := s.tickets.Claim(ctx, req.StudentID, req.Username, user)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student id not found")
		case errors.Is(err, repository.ErrTicketAssigned):
			return nil, appErrors.Clone(appErrors.ErrTicketClaimed, "this student ID has already been used")
		case errors.Is(err, repository.ErrUsernameMismatch):
			return nil, appErrors.Clone(appErrors.ErrValidation, "username does not match this student ID")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim ticket")
	}

	s.logger.Info("ticket claimed",
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", user.ID),
		zap.String("username", user.Username))
	return &ClaimTicketResult{User: user, Ticket: ticket}, nil
}

func randomStudentID() (string, error) {
	buf := make([]byte, studentIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = studentIDCharset[int(b)%len(studentIDCharset)]
	}
	return string(buf), nil
}
