package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type accessScopeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Scope, error)
}

type digitalKeyRepository interface {
	Find(ctx context.Context, userID, scopeID string) (*models.DigitalKey, error)
	Exists(ctx context.Context, userID, scopeID string) (bool, error)
	Create(ctx context.Context, key *models.DigitalKey) error
}

// AccessService verifies access codes and issues permanent unlock records.
type AccessService struct {
	scopes accessScopeRepository
	keys   digitalKeyRepository
	logger *zap.Logger
}

// NewAccessService creates an instance of AccessService.
func NewAccessService(scopes accessScopeRepository, keys digitalKeyRepository, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{scopes: scopes, keys: keys, logger: logger}
}

// Unlock exchanges a correct access code for a permanent digital key. The
// operation is idempotent: holding a key already is a success, and a lost
// insert race against a concurrent unlock is reported the same way.
func (s *AccessService) Unlock(ctx context.Context, userID, scopeID, code string) (*models.UnlockResult, error) {
	scope, err := s.scopes.FindByID(ctx, scopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scope not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scope")
	}

	// Idempotent short-circuit: an existing key means the code was proven
	// once already, so it is not re-validated.
	if _, err := s.keys.Find(ctx, userID, scopeID); err == nil {
		return &models.UnlockResult{Granted: true, AlreadyHeld: true}, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing key")
	}

	if scope.AccessCode == nil || *scope.AccessCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scope does not require an access code")
	}
	if *scope.AccessCode != code {
		return nil, appErrors.Clone(appErrors.ErrIncorrectCode, "incorrect access code")
	}

	key := &models.DigitalKey{UserID: userID, ScopeID: scopeID}
	if err := s.keys.Create(ctx, key); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return &models.UnlockResult{Granted: true, AlreadyHeld: true}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store digital key")
	}

	s.logger.Info("scope unlocked", zap.String("user_id", userID), zap.String("scope_id", scopeID))
	return &models.UnlockResult{Granted: true, AlreadyHeld: false}, nil
}

// HasAccess reports whether a user may file content under a scope. Public
// scopes carry no code and are open to everyone; any other scope requires a
// digital key.
func (s *AccessService) HasAccess(ctx context.Context, userID, scopeID string) (bool, error) {
	scope, err := s.scopes.FindByID(ctx, scopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "scope not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scope")
	}
	if scope.Kind == models.ScopePublic {
		return true, nil
	}

	exists, err := s.keys.Exists(ctx, userID, scopeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check access")
	}
	return exists, nil
}
