package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindRSVP(ctx context.Context, eventID, userID string) (*models.EventRSVP, error)
	CreateRSVP(ctx context.Context, rsvp *models.EventRSVP) error
	DeleteRSVP(ctx context.Context, eventID, userID string) error
}

// RSVPResult reports the state after toggling attendance.
type RSVPResult struct {
	EventID    string  `json:"event_id"`
	Attending  bool    `json:"attending"`
	Reputation float64 `json:"reputation"`
}

// EventService handles event attendance. RSVPs feed the events-attended term
// of the reputation formula, so every toggle triggers a recompute.
type EventService struct {
	events     eventRepository
	access     *AccessService
	reputation *ReputationService
	logger     *zap.Logger
}

// NewEventService creates an instance of EventService.
func NewEventService(events eventRepository, access *AccessService, reputation *ReputationService, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, access: access, reputation: reputation, logger: logger}
}

// ToggleRSVP flips the user's attendance on an event. Attending twice cancels
// the RSVP, so the events-attended count never double-counts an event.
func (s *EventService) ToggleRSVP(ctx context.Context, eventID, userID string) (*RSVPResult, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if event.ScopeID != nil {
		allowed, err := s.access.HasAccess(ctx, userID, *event.ScopeID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "scope is locked: present its access code first")
		}
	}

	attending := false
	existing, err := s.events.FindRSVP(ctx, eventID, userID)
	switch {
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rsvp")
	case existing != nil:
		if err := s.events.DeleteRSVP(ctx, eventID, userID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel rsvp")
		}
	default:
		rsvp := &models.EventRSVP{EventID: eventID, UserID: userID}
		if err := s.events.CreateRSVP(ctx, rsvp); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rsvp")
		}
		attending = true
	}

	reputation, err := s.reputation.Calculate(ctx, userID)
	if err != nil {
		s.logger.Warn("reputation recompute failed after rsvp", zap.String("user_id", userID), zap.Error(err))
	}

	return &RSVPResult{EventID: eventID, Attending: attending, Reputation: reputation}, nil
}
