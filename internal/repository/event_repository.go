package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-community-api/internal/models"
)

// EventRepository provides database access for events and RSVPs.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID returns an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, scope_id, title, starts_at, created_by, created_at FROM events WHERE id = $1 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// FindRSVP returns a user's RSVP for an event.
func (r *EventRepository) FindRSVP(ctx context.Context, eventID, userID string) (*models.EventRSVP, error) {
	const query = `SELECT id, event_id, user_id, created_at FROM event_rsvps WHERE event_id = $1 AND user_id = $2 LIMIT 1`
	var rsvp models.EventRSVP
	if err := r.db.GetContext(ctx, &rsvp, query, eventID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	return &rsvp, nil
}

// CreateRSVP marks a user as attending an event.
func (r *EventRepository) CreateRSVP(ctx context.Context, rsvp *models.EventRSVP) error {
	if rsvp.ID == "" {
		rsvp.ID = uuid.NewString()
	}
	if rsvp.CreatedAt.IsZero() {
		rsvp.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_rsvps (id, event_id, user_id, created_at) VALUES (:id, :event_id, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rsvp); err != nil {
		return fmt.Errorf("create rsvp: %w", err)
	}
	return nil
}

// DeleteRSVP withdraws a user's attendance.
func (r *EventRepository) DeleteRSVP(ctx context.Context, eventID, userID string) error {
	const query = `DELETE FROM event_rsvps WHERE event_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, eventID, userID); err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	return nil
}

// CountAttendedByUser counts the events a user has RSVPed to.
func (r *EventRepository) CountAttendedByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM event_rsvps WHERE user_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count attended events: %w", err)
	}
	return count, nil
}
