package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type scopeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Scope, error)
	FindPublic(ctx context.Context) (*models.Scope, error)
	FindGradeByNumber(ctx context.Context, gradeNumber int) (*models.Scope, error)
	FindSectionByName(ctx context.Context, sectionName string) (*models.Scope, error)
	List(ctx context.Context) ([]models.Scope, error)
	Create(ctx context.Context, scope *models.Scope) error
	CountSectionChildren(ctx context.Context, gradeNumber int) (int, error)
	CountKeys(ctx context.Context, scopeID string) (int, error)
	CountContent(ctx context.Context, scopeID string) (posts, events, schedules int, err error)
	Delete(ctx context.Context, id string) error
}

// CreateScopeRequest represents payload for creating scopes.
type CreateScopeRequest struct {
	Kind        models.ScopeKind `json:"kind" validate:"required,oneof=PUBLIC GRADE SECTION"`
	Name        string           `json:"name" validate:"required"`
	AccessCode  string           `json:"access_code" validate:"omitempty,alphanum"`
	GradeNumber int              `json:"grade_number"`
	SectionName string           `json:"section_name"`
}

// Section names look like "3-A": the parent grade number, a dash, one letter.
var sectionNamePattern = regexp.MustCompile(`^([1-9][0-9]?)-([A-Z])$`)

// ScopeService manages the hierarchical access namespace.
type ScopeService struct {
	repo      scopeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScopeService creates an instance of ScopeService.
func NewScopeService(repo scopeRepository, validate *validator.Validate, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScopeService{repo: repo, validator: validate, logger: logger}
}

// Create validates the scope shape by kind and inserts it.
func (s *ScopeService) Create(ctx context.Context, req CreateScopeRequest) (*models.Scope, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create scope payload")
	}

	scope := &models.Scope{Kind: req.Kind, Name: req.Name}

	switch req.Kind {
	case models.ScopePublic:
		if req.AccessCode != "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "public scope must not carry an access code")
		}
		if _, err := s.repo.FindPublic(ctx); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a public scope already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check public scope uniqueness")
		}

	case models.ScopeGrade:
		if req.AccessCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grade scope requires an access code")
		}
		if req.GradeNumber < models.MinGradeNumber || req.GradeNumber > models.MaxGradeNumber {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade number must be between %d and %d", models.MinGradeNumber, models.MaxGradeNumber))
		}
		if _, err := s.repo.FindGradeByNumber(ctx, req.GradeNumber); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grade %d scope already exists", req.GradeNumber))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade uniqueness")
		}
		grade := req.GradeNumber
		code := req.AccessCode
		scope.GradeNumber = &grade
		scope.AccessCode = &code

	case models.ScopeSection:
		if req.AccessCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section scope requires an access code")
		}
		match := sectionNamePattern.FindStringSubmatch(req.SectionName)
		if match == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section name must look like <grade>-<letter>, e.g. 3-A")
		}
		gradeNumber, _ := strconv.Atoi(match[1])
		if _, err := s.repo.FindGradeByNumber(ctx, gradeNumber); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent grade must exist before creating a section")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent grade")
		}
		if _, err := s.repo.FindSectionByName(ctx, req.SectionName); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("section %s scope already exists", req.SectionName))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section uniqueness")
		}
		section := req.SectionName
		code := req.AccessCode
		scope.SectionName = &section
		scope.GradeNumber = &gradeNumber
		scope.AccessCode = &code
	}

	if err := s.repo.Create(ctx, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scope")
	}

	s.logger.Info("scope created",
		zap.String("scope_id", scope.ID),
		zap.String("kind", string(scope.Kind)),
		zap.String("name", scope.Name))
	return scope, nil
}

// Get returns a scope by ID.
func (s *ScopeService) Get(ctx context.Context, id string) (*models.Scope, error) {
	scope, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scope not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scope")
	}
	return scope, nil
}

// List returns every scope.
func (s *ScopeService) List(ctx context.Context) ([]models.Scope, error) {
	scopes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scopes")
	}
	return scopes, nil
}

// Delete removes a scope only when nothing depends on it. The checks run in
// a fixed order (section children, then keys, then content) so the most
// specific blocking reason is reported first.
func (s *ScopeService) Delete(ctx context.Context, id string) error {
	scope, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "scope not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scope")
	}

	if scope.Kind == models.ScopeGrade && scope.GradeNumber != nil {
		children, err := s.repo.CountSectionChildren(ctx, *scope.GradeNumber)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count section children")
		}
		if children > 0 {
			return appErrors.Clone(appErrors.ErrScopeInUse, fmt.Sprintf("cannot delete scope: %d dependent section scope(s) exist", children))
		}
	}

	keys, err := s.repo.CountKeys(ctx, scope.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count digital keys")
	}
	if keys > 0 {
		return appErrors.Clone(appErrors.ErrScopeInUse, fmt.Sprintf("cannot delete scope: %d digital key(s) are outstanding", keys))
	}

	posts, events, schedules, err := s.repo.CountContent(ctx, scope.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count scope content")
	}
	switch {
	case posts > 0:
		return appErrors.Clone(appErrors.ErrScopeInUse, fmt.Sprintf("cannot delete scope: %d post(s) reference it", posts))
	case events > 0:
		return appErrors.Clone(appErrors.ErrScopeInUse, fmt.Sprintf("cannot delete scope: %d event(s) reference it", events))
	case schedules > 0:
		return appErrors.Clone(appErrors.ErrScopeInUse, fmt.Sprintf("cannot delete scope: %d schedule(s) reference it", schedules))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "scope not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete scope")
	}

	s.logger.Info("scope deleted", zap.String("scope_id", id), zap.String("kind", string(scope.Kind)))
	return nil
}
