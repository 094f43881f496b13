package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
	"github.com/noah-isme/school-community-api/pkg/export"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
}

type successionRepository interface {
	Transfer(ctx context.Context, currentAdminID, successorID, notes string) (*models.AdminSuccessionRecord, error)
	List(ctx context.Context) ([]models.AdminSuccessionRecord, error)
}

// TransferRequest is the payload for an admin handover.
type TransferRequest struct {
	SuccessorID string `json:"successor_id" validate:"required"`
	Notes       string `json:"notes"`
}

// AdminService owns every role transition: atomic handover and
// non-destructive promotion. Nothing else mutates user roles.
type AdminService struct {
	users      adminUserRepository
	succession successionRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAdminService creates an instance of AdminService.
func NewAdminService(users adminUserRepository, succession successionRepository, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{users: users, succession: succession, validator: validate, logger: logger}
}

// Transfer hands the caller's admin role to the successor. The caller is
// demoted to student, the successor promoted, and one succession record
// written, all in a single transaction.
func (s *AdminService) Transfer(ctx context.Context, currentAdminID string, req TransferRequest) (*models.AdminSuccessionRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if req.SuccessorID == currentAdminID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot transfer admin role to yourself")
	}

	caller, err := s.users.FindByID(ctx, currentAdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "caller not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}
	if caller.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only an admin can hand over the admin role")
	}

	if _, err := s.users.FindByID(ctx, req.SuccessorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "successor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load successor")
	}

	record, err := s.succession.Transfer(ctx, currentAdminID, req.SuccessorID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotCurrentAdmin):
			return nil, appErrors.Clone(appErrors.ErrConflict, "admin role changed before the handover committed")
		case errors.Is(err, repository.ErrSuccessorMissing):
			return nil, appErrors.Clone(appErrors.ErrConflict, "successor disappeared before the handover committed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer admin role")
	}

	s.logger.Info("admin handover completed",
		zap.String("previous_admin_id", record.PreviousAdminID),
		zap.String("new_admin_id", record.NewAdminID))
	return record, nil
}

// Promote grants the admin role to an additional user. The caller keeps
// their own role; many admins may coexist. Promotions write no succession
// record, only this log line.
func (s *AdminService) Promote(ctx context.Context, currentAdminID, targetUserID string) error {
	if targetUserID == currentAdminID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot promote yourself")
	}

	caller, err := s.users.FindByID(ctx, currentAdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "caller not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}
	if caller.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only an admin can promote users")
	}

	target, err := s.users.FindByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "target user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target user")
	}
	if target.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrConflict, "target user is already an admin")
	}

	if err := s.users.UpdateRole(ctx, targetUserID, models.RoleAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "target user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote user")
	}

	s.logger.Info("user promoted to admin",
		zap.String("promoted_by", currentAdminID),
		zap.String("user_id", targetUserID),
		zap.String("previous_role", string(target.Role)))
	return nil
}

// AuditTrail returns the succession ledger, newest first.
func (s *AdminService) AuditTrail(ctx context.Context) ([]models.AdminSuccessionRecord, error) {
	records, err := s.succession.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list succession records")
	}
	return records, nil
}

// AuditDataset shapes the succession ledger for the CSV/PDF exporters.
func (s *AdminService) AuditDataset(ctx context.Context) (export.Dataset, error) {
	records, err := s.AuditTrail(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Previous Admin", "New Admin", "Notes"},
		Rows:    make([]map[string]string, 0, len(records)),
	}
	for _, record := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":           record.CreatedAt.Format("2006-01-02 15:04"),
			"Previous Admin": record.PreviousAdminID,
			"New Admin":      record.NewAdminID,
			"Notes":          record.Notes,
		})
	}
	return dataset, nil
}
