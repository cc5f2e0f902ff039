package acl

import (
	"context"
	"sync"
	"testing"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records events synchronously for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (s *captureSink) Record(event models.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestChecker(t *testing.T) (*Checker, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	return NewChecker(NewActionCatalog(), sink, logger.Nop()), sink
}

func TestCheckAccess_AdminShortCircuit(t *testing.T) {
	checker, sink := newTestChecker(t)
	ctx := context.Background()

	admin := models.Principal{UserID: 1, IsAdminApp: true} // profile deliberately nil

	actions := []models.ActionID{
		models.ActionItemView,
		models.ActionItemEditPass,
		models.ActionItemDelete,
		models.ActionRotationStart,
		models.ActionID(9999), // unrecognized action
	}

	for _, action := range actions {
		assert.True(t, checker.CheckAccess(ctx, admin, action, 0),
			"admin should be granted %v", action)
	}

	assert.Equal(t, 0, sink.count(), "admin grants must not emit audit events")
}

func TestCheckAccess_NilProfileDenies(t *testing.T) {
	checker, sink := newTestChecker(t)

	principal := models.Principal{UserID: 7, Profile: nil}

	require.False(t, checker.CheckAccess(context.Background(), principal, models.ActionItemView, 0))
	assert.Equal(t, 1, sink.count())
}

func TestCheckAccess_ProfileRules(t *testing.T) {
	tests := []struct {
		name      string
		profile   models.Profile
		action    models.ActionID
		ownerHint int64
		want      bool
	}{
		{
			name:    "view granted by view capability",
			profile: models.Profile{ItemView: true},
			action:  models.ActionItemView,
			want:    true,
		},
		{
			name:    "view granted by edit capability",
			profile: models.Profile{ItemEdit: true},
			action:  models.ActionItemView,
			want:    true,
		},
		{
			name:    "view denied without capability",
			profile: models.Profile{ItemCreate: true},
			action:  models.ActionItemView,
			want:    false,
		},
		{
			name:    "view pass requires dedicated capability",
			profile: models.Profile{ItemView: true, ItemEdit: true},
			action:  models.ActionItemViewPass,
			want:    false,
		},
		{
			name:    "edit pass implies view pass",
			profile: models.Profile{ItemEditPass: true},
			action:  models.ActionItemViewPass,
			want:    true,
		},
		{
			name:    "delete requires delete capability",
			profile: models.Profile{ItemEdit: true},
			action:  models.ActionItemDelete,
			want:    false,
		},
		{
			name:    "link refresh granted by link create",
			profile: models.Profile{LinkCreate: true},
			action:  models.ActionLinkRefresh,
			want:    true,
		},
		{
			name:      "user edit pass denied for other user",
			profile:   models.Profile{},
			action:    models.ActionUserEditPass,
			ownerHint: 99,
			want:      false,
		},
		{
			name:      "user edit pass allowed for self",
			profile:   models.Profile{},
			action:    models.ActionUserEditPass,
			ownerHint: 7,
			want:      true,
		},
		{
			name:    "rotation start never granted by profile",
			profile: models.Profile{ItemView: true, ItemEdit: true, ItemEditPass: true, ItemDelete: true, UserEdit: true},
			action:  models.ActionRotationStart,
			want:    false,
		},
		{
			name:    "unknown action denied",
			profile: models.Profile{ItemView: true},
			action:  models.ActionID(4242),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, sink := newTestChecker(t)

			profile := tt.profile
			principal := models.Principal{UserID: 7, Profile: &profile}

			got := checker.CheckAccess(context.Background(), principal, tt.action, tt.ownerHint)
			assert.Equal(t, tt.want, got)

			if tt.want {
				assert.Equal(t, 0, sink.count(), "grant must not emit an audit event")
			} else {
				assert.Equal(t, 1, sink.count(), "denial must emit exactly one audit event")
			}
		})
	}
}

func TestCheckAccess_DenialEventFields(t *testing.T) {
	checker, sink := newTestChecker(t)

	principal := models.Principal{UserID: 7, Profile: &models.Profile{}}
	require.False(t, checker.CheckAccess(context.Background(), principal, models.ActionItemDelete, 3))

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, int64(7), event.UserID)
	assert.Equal(t, models.ActionItemDelete, event.Action)
	assert.Equal(t, models.AuditDenied, event.Outcome)
}
