package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
)

type mockEventRepo struct {
	events map[string]*models.Event
	rsvps  map[string]*models.EventRSVP
}

func rsvpKey(eventID, userID string) string { return eventID + "|" + userID }

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) FindRSVP(ctx context.Context, eventID, userID string) (*models.EventRSVP, error) {
	if r, ok := m.rsvps[rsvpKey(eventID, userID)]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) CreateRSVP(ctx context.Context, rsvp *models.EventRSVP) error {
	if m.rsvps == nil {
		m.rsvps = make(map[string]*models.EventRSVP)
	}
	m.rsvps[rsvpKey(rsvp.EventID, rsvp.UserID)] = rsvp
	return nil
}

func (m *mockEventRepo) DeleteRSVP(ctx context.Context, eventID, userID string) error {
	delete(m.rsvps, rsvpKey(eventID, userID))
	return nil
}

func newEventFixture() (*EventService, *mockEventRepo) {
	events := &mockEventRepo{events: map[string]*models.Event{
		"event-1": {ID: "event-1", Title: "Science Fair"},
		"event-2": {ID: "event-2", Title: "Grade Assembly", ScopeID: strPtr("grade-9")},
	}}
	scopes := &mockScopeFinder{scopes: map[string]*models.Scope{"grade-9": gradeScope("grade-9", "SECRET9")}}
	access := NewAccessService(scopes, &mockKeyRepo{}, zap.NewNop())
	users := &mockReputationUsers{users: map[string]*models.User{"user-1": {ID: "user-1", CredibilityScore: 50}}}
	svc := NewEventService(events, access, newTestReputationService(users), zap.NewNop())
	return svc, events
}

func TestEventServiceToggleRSVP(t *testing.T) {
	svc, repo := newEventFixture()

	result, err := svc.ToggleRSVP(context.Background(), "event-1", "user-1")
	require.NoError(t, err)
	assert.True(t, result.Attending)
	assert.Contains(t, repo.rsvps, rsvpKey("event-1", "user-1"))

	// A second toggle cancels the attendance instead of double counting.
	result, err = svc.ToggleRSVP(context.Background(), "event-1", "user-1")
	require.NoError(t, err)
	assert.False(t, result.Attending)
	assert.NotContains(t, repo.rsvps, rsvpKey("event-1", "user-1"))
}

func TestEventServiceToggleUnknownEvent(t *testing.T) {
	svc, _ := newEventFixture()

	_, err := svc.ToggleRSVP(context.Background(), "ghost", "user-1")
	assert.Error(t, err)
}

func TestEventServiceScopedEventRequiresKey(t *testing.T) {
	svc, repo := newEventFixture()

	_, err := svc.ToggleRSVP(context.Background(), "event-2", "user-1")
	require.Error(t, err)
	assert.NotContains(t, repo.rsvps, rsvpKey("event-2", "user-1"))
}
