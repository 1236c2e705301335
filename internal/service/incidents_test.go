package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/service/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc      *Service
	store    *servicetest.Store
	notifier *servicetest.Notifier
	otps     *servicetest.OTPStore
	clock    *time.Time

	admin   *domain.User
	manager *domain.User
	alice   *domain.User
	bob     *domain.User
	carol   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := servicetest.NewStore()
	notifier := &servicetest.Notifier{}
	otps := servicetest.NewOTPStore()

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		store:    store,
		notifier: notifier,
		otps:     otps,
		clock:    &clock,
	}

	f.svc = New(store, notifier, otps, Options{
		BaseURL:    "https://incidents.example.com/",
		BcryptCost: bcrypt.MinCost,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now: func() time.Time {
			*f.clock = f.clock.Add(time.Second)
			return *f.clock
		},
	})

	f.admin = store.AddUser(domain.User{Username: "root", Email: "root@example.com", Role: domain.RoleAdmin})
	f.manager = store.AddUser(domain.User{Username: "mia", Email: "mia@example.com", Role: domain.RoleManager})
	f.alice = store.AddUser(domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleMember})
	f.bob = store.AddUser(domain.User{Username: "bob", Email: "bob@example.com", Role: domain.RoleMember})
	f.carol = store.AddUser(domain.User{Username: "carol", Email: "carol@example.com", Role: domain.RoleMember})

	return f
}

func (f *fixture) createIncident(t *testing.T, actor *domain.User, priority domain.Priority, incidentType string) *domain.Incident {
	t.Helper()

	incident, err := f.svc.CreateIncident(context.Background(), actor, CreateIncidentInput{
		Title:        "Disk full",
		Description:  "d",
		IncidentType: incidentType,
		Priority:     priority,
	})
	require.NoError(t, err)
	return incident
}

func kindOf(err error) error {
	for _, kind := range []error{domain.ErrUnauthenticated, domain.ErrForbidden, domain.ErrNotFound, domain.ErrInvalidArgument} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func TestCreateIncidentDefaults(t *testing.T) {
	f := newFixture(t)

	incident := f.createIncident(t, f.alice, "", "infrastructure")

	assert.NotZero(t, incident.ID)
	assert.Equal(t, "Disk full", incident.Title)
	assert.Equal(t, domain.StatusOpen, incident.Status)
	assert.Equal(t, domain.PriorityMedium, incident.Priority)
	assert.Equal(t, f.alice.ID, incident.CreatorID)
	assert.Nil(t, incident.AssigneeID)
	assert.Nil(t, incident.ResolvedAt)
	assert.Equal(t, incident.CreatedAt, incident.UpdatedAt)

	stored, err := f.store.GetIncidentByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, incident, stored)
}

func TestCreateIncidentValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateIncidentInput
		msg  string
	}{
		{
			name: "missing title",
			in:   CreateIncidentInput{Description: "d", IncidentType: "network"},
			msg:  "missing required field: title",
		},
		{
			name: "blank description",
			in:   CreateIncidentInput{Title: "t", Description: "  ", IncidentType: "network"},
			msg:  "missing required field: description",
		},
		{
			name: "missing type",
			in:   CreateIncidentInput{Title: "t", Description: "d"},
			msg:  "missing required field: incident_type",
		},
		{
			name: "unknown priority",
			in:   CreateIncidentInput{Title: "t", Description: "d", IncidentType: "network", Priority: "urgent"},
			msg:  "invalid priority value",
		},
		{
			name: "title too long",
			in:   CreateIncidentInput{Title: strings.Repeat("a", 101), Description: "d", IncidentType: "network"},
			msg:  "title must be at most 100 characters",
		},
		{
			name: "type too long",
			in:   CreateIncidentInput{Title: "t", Description: "d", IncidentType: strings.Repeat("n", 51)},
			msg:  "incident_type must be at most 50 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateIncident(context.Background(), f.alice, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Equal(t, tt.msg, err.Error())
			assert.Empty(t, f.notifier.Messages())
		})
	}
}

func TestCreateIncidentNotifiesAdminsAndManagers(t *testing.T) {
	f := newFixture(t)

	incident := f.createIncident(t, f.alice, domain.PriorityHigh, "network")

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MailIncidentCreated, msgs[0].Type)
	assert.ElementsMatch(t, []string{"root@example.com", "mia@example.com"}, msgs[0].To)

	data := servicetest.DecodeData[domain.IncidentMailData](t, msgs[0])
	assert.Equal(t, incident.ID, data.IncidentID)
	assert.Equal(t, "alice", data.CreatorName)
	assert.Equal(t, "high", data.Priority)
	assert.Equal(t, fmt.Sprintf("https://incidents.example.com/incidents/%d", incident.ID), data.URL)
}

func TestCreateIncidentSucceedsWhenNotifierFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.Err = errors.New("queue full")

	incident := f.createIncident(t, f.alice, domain.PriorityLow, "network")
	assert.Equal(t, domain.StatusOpen, incident.Status)
}

func TestAssignForcesInProgressAndNotifiesAssigneeOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignee := f.store.AddUser(domain.User{ID: 7, Username: "seven", Email: "seven@example.com", Role: domain.RoleMember})

	for _, status := range []domain.Status{domain.StatusOpen, domain.StatusResolved, domain.StatusClosed} {
		t.Run(string(status), func(t *testing.T) {
			incident := f.createIncident(t, f.alice, "", "database")
			if status != domain.StatusOpen {
				_, err := f.svc.UpdateStatus(ctx, f.admin, incident.ID, status)
				require.NoError(t, err)
			}
			f.notifier.Reset()

			assigned, err := f.svc.AssignIncident(ctx, f.manager, incident.ID, 7)
			require.NoError(t, err)

			assert.Equal(t, domain.StatusInProgress, assigned.Status)
			require.NotNil(t, assigned.AssigneeID)
			assert.Equal(t, int64(7), *assigned.AssigneeID)

			msgs := f.notifier.Messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, domain.MailIncidentAssigned, msgs[0].Type)
			assert.Equal(t, []string{assignee.Email}, msgs[0].To)

			data := servicetest.DecodeData[domain.IncidentMailData](t, msgs[0])
			assert.Equal(t, "seven", data.AssigneeName)
			assert.Equal(t, "mia", data.ActorName)
		})
	}
}

func TestAssignRequiresPrivilegedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "database")
	f.notifier.Reset()

	_, err := f.svc.AssignIncident(ctx, f.alice, incident.ID, f.bob.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := f.store.GetIncidentByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssigneeID)
	assert.Equal(t, domain.StatusOpen, stored.Status)
	assert.Empty(t, f.notifier.Messages())
}

func TestAssignRejectsUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "database")

	_, err := f.svc.AssignIncident(ctx, f.admin, incident.ID, 999)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, "invalid assignee_id", err.Error())

	_, err = f.svc.AssignIncident(ctx, f.admin, 12345, f.bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatusResolvedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "application")

	resolved, err := f.svc.UpdateStatus(ctx, f.alice, incident.ID, domain.StatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.False(t, resolved.ResolvedAt.Before(resolved.CreatedAt))
	first := *resolved.ResolvedAt

	for _, status := range []domain.Status{domain.StatusInProgress, domain.StatusOpen, domain.StatusClosed} {
		updated, err := f.svc.UpdateStatus(ctx, f.alice, incident.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		require.NotNil(t, updated.ResolvedAt, "status %s cleared resolved_at", status)
		assert.Equal(t, first, *updated.ResolvedAt)
	}

	again, err := f.svc.UpdateStatus(ctx, f.alice, incident.ID, domain.StatusResolved)
	require.NoError(t, err)
	assert.True(t, again.ResolvedAt.After(first))
}

func TestUpdateStatusPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "application")
	_, err := f.svc.AssignIncident(ctx, f.admin, incident.ID, f.bob.ID)
	require.NoError(t, err)

	before, err := f.store.GetIncidentByID(ctx, incident.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.carol, incident.ID, domain.StatusClosed)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	after, err := f.store.GetIncidentByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// an invalid value from an unauthorized actor is still a permission failure
	_, err = f.svc.UpdateStatus(ctx, f.carol, incident.ID, "bogus")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.bob, incident.ID, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	for _, actor := range []*domain.User{f.alice, f.bob, f.manager, f.admin} {
		_, err := f.svc.UpdateStatus(ctx, actor, incident.ID, domain.StatusInProgress)
		assert.NoError(t, err, actor.Username)
	}
}

func TestUpdateStatusRecipients(t *testing.T) {
	tests := []struct {
		name     string
		assign   bool
		actor    func(f *fixture) *domain.User
		expected func(f *fixture) []string
	}{
		{
			name:     "unassigned",
			actor:    func(f *fixture) *domain.User { return f.admin },
			expected: func(f *fixture) []string { return []string{f.alice.Email} },
		},
		{
			name:     "assignee acts",
			assign:   true,
			actor:    func(f *fixture) *domain.User { return f.bob },
			expected: func(f *fixture) []string { return []string{f.alice.Email} },
		},
		{
			name:     "creator acts",
			assign:   true,
			actor:    func(f *fixture) *domain.User { return f.alice },
			expected: func(f *fixture) []string { return []string{f.alice.Email, f.bob.Email} },
		},
		{
			name:     "manager acts",
			assign:   true,
			actor:    func(f *fixture) *domain.User { return f.manager },
			expected: func(f *fixture) []string { return []string{f.alice.Email, f.bob.Email} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			incident := f.createIncident(t, f.alice, "", "security")
			if tt.assign {
				_, err := f.svc.AssignIncident(ctx, f.admin, incident.ID, f.bob.ID)
				require.NoError(t, err)
			}
			f.notifier.Reset()

			_, err := f.svc.UpdateStatus(ctx, tt.actor(f), incident.ID, domain.StatusResolved)
			require.NoError(t, err)

			msgs := f.notifier.OfType(domain.MailIncidentStatusChanged)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.expected(f), msgs[0].To)

			data := servicetest.DecodeData[domain.IncidentMailData](t, msgs[0])
			assert.Equal(t, "resolved", data.Status)
		})
	}
}

func TestUpdateStatusSelfAssignedCreatorGetsOneMail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "security")
	_, err := f.svc.AssignIncident(ctx, f.admin, incident.ID, f.alice.ID)
	require.NoError(t, err)
	f.notifier.Reset()

	_, err = f.svc.UpdateStatus(ctx, f.admin, incident.ID, domain.StatusClosed)
	require.NoError(t, err)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{f.alice.Email}, msgs[0].To)
}

// creatorLookupFails makes the creator of an incident unreadable after it was stored.
type creatorLookupFails struct {
	*servicetest.Store
	creatorID int64
}

func (s creatorLookupFails) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if id == s.creatorID {
		return nil, errors.New("connection reset")
	}
	return s.Store.GetUserByID(ctx, id)
}

func TestUpdateStatusStillNotifiesAssigneeWhenCreatorLookupFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "security")
	_, err := f.svc.AssignIncident(ctx, f.admin, incident.ID, f.bob.ID)
	require.NoError(t, err)
	f.notifier.Reset()

	svc := New(creatorLookupFails{Store: f.store, creatorID: f.alice.ID}, f.notifier, f.otps, f.svc.opts)

	_, err = svc.UpdateStatus(ctx, f.manager, incident.ID, domain.StatusResolved)
	require.NoError(t, err)

	msgs := f.notifier.OfType(domain.MailIncidentStatusChanged)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{f.bob.Email}, msgs[0].To)

	data := servicetest.DecodeData[domain.IncidentMailData](t, msgs[0])
	assert.Empty(t, data.CreatorName)
	assert.Equal(t, "bob", data.AssigneeName)
}

func TestUpdateIncident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "network")
	f.notifier.Reset()

	title := "Disk full on db01"
	priority := domain.PriorityCritical
	updated, err := f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{Title: &title, Priority: &priority})
	require.NoError(t, err)

	assert.Equal(t, title, updated.Title)
	assert.Equal(t, domain.PriorityCritical, updated.Priority)
	assert.Equal(t, "d", updated.Description)
	assert.True(t, updated.UpdatedAt.After(incident.UpdatedAt))
	assert.Empty(t, f.notifier.Messages())
}

func TestUpdateIncidentForbiddenLeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "network")

	title := "hijacked"
	for _, actor := range []*domain.User{f.bob, f.carol} {
		_, err := f.svc.UpdateIncident(ctx, actor, incident.ID, UpdateIncidentInput{Title: &title})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}

	stored, err := f.store.GetIncidentByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, incident, stored)

	_, err = f.svc.UpdateIncident(ctx, f.manager, incident.ID, UpdateIncidentInput{Title: &title})
	assert.NoError(t, err)
}

func TestUpdateIncidentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "network")

	_, err := f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, "no data provided", err.Error())

	empty := " "
	_, err = f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{Description: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	bogus := domain.Priority("urgent")
	_, err = f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{Priority: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.UpdateIncident(ctx, f.alice, 404, UpdateIncidentInput{Description: &empty})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	long := strings.Repeat("a", 101)
	_, err = f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{Title: &long})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, "title must be at most 100 characters", err.Error())

	longType := strings.Repeat("n", 51)
	_, err = f.svc.UpdateIncident(ctx, f.alice, incident.ID, UpdateIncidentInput{IncidentType: &longType})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	stored, err := f.store.GetIncidentByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, incident.Title, stored.Title)
	assert.Equal(t, "network", stored.IncidentType)
}

func TestCreateIncidentAcceptsMaximumLengths(t *testing.T) {
	f := newFixture(t)

	// limits count characters, not bytes
	title := strings.Repeat("é", domain.MaxTitleLength)
	incident, err := f.svc.CreateIncident(context.Background(), f.alice, CreateIncidentInput{
		Title:        title,
		Description:  "d",
		IncidentType: strings.Repeat("n", domain.MaxIncidentTypeLength),
	})
	require.NoError(t, err)
	assert.Equal(t, title, incident.Title)
}

func TestListIncidentsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createIncident(t, f.alice, domain.PriorityHigh, "network")
	b := f.createIncident(t, f.alice, domain.PriorityLow, "network")
	c := f.createIncident(t, f.bob, domain.PriorityHigh, "database")
	_, err := f.svc.UpdateStatus(ctx, f.admin, b.ID, domain.StatusClosed)
	require.NoError(t, err)
	_, err = f.svc.AssignIncident(ctx, f.admin, c.ID, f.carol.ID)
	require.NoError(t, err)

	ids := func(incidents []*domain.Incident) []int64 {
		out := make([]int64, 0, len(incidents))
		for _, incident := range incidents {
			out = append(out, incident.ID)
		}
		return out
	}

	all, err := f.svc.ListIncidents(ctx, domain.IncidentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, ids(all))

	for _, status := range domain.Statuses {
		got, err := f.svc.ListIncidents(ctx, domain.IncidentFilter{Status: status})
		require.NoError(t, err)
		for _, incident := range got {
			assert.Equal(t, status, incident.Status)
		}
	}

	high, err := f.svc.ListIncidents(ctx, domain.IncidentFilter{Priority: domain.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID}, ids(high))

	highNetwork, err := f.svc.ListIncidents(ctx, domain.IncidentFilter{Priority: domain.PriorityHigh, IncidentType: "network"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(highNetwork))

	closedHigh, err := f.svc.ListIncidents(ctx, domain.IncidentFilter{Status: domain.StatusClosed, Priority: domain.PriorityHigh})
	require.NoError(t, err)
	assert.Empty(t, closedHigh)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []*domain.Incident
	for i := 0; i < 6; i++ {
		created = append(created, f.createIncident(t, f.alice, "", "network"))
	}
	_, err := f.svc.UpdateStatus(ctx, f.admin, created[0].ID, domain.StatusClosed)
	require.NoError(t, err)
	_, err = f.svc.AssignIncident(ctx, f.admin, created[1].ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignIncident(ctx, f.admin, created[2].ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.admin, created[2].ID, domain.StatusClosed)
	require.NoError(t, err)

	dashboard, err := f.svc.Dashboard(ctx, f.alice)
	require.NoError(t, err)

	assert.Len(t, dashboard.OpenIncidents, 4)
	for _, incident := range dashboard.OpenIncidents {
		assert.NotEqual(t, domain.StatusClosed, incident.Status)
	}
	require.Len(t, dashboard.MyIncidents, 1)
	assert.Equal(t, created[1].ID, dashboard.MyIncidents[0].ID)
	require.Len(t, dashboard.CreatedIncidents, 5)
	assert.Equal(t, created[5].ID, dashboard.CreatedIncidents[0].ID)
	assert.Equal(t, 6, dashboard.Total)
	assert.Equal(t, 2, dashboard.Counts[domain.StatusClosed])
	assert.Equal(t, 3, dashboard.Counts[domain.StatusOpen])
	assert.Equal(t, 1, dashboard.Counts[domain.StatusInProgress])
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incident := f.createIncident(t, f.alice, "", "network")

	first, err := f.svc.AddComment(ctx, f.carol, incident.ID, "  looking into it ")
	require.NoError(t, err)
	assert.Equal(t, "looking into it", first.Content)
	assert.Equal(t, "carol", first.AuthorName)
	assert.Equal(t, f.carol.ID, first.AuthorID)

	_, err = f.svc.AddComment(ctx, f.bob, incident.ID, "same here")
	require.NoError(t, err)

	comments, err := f.svc.Comments(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "carol", comments[0].AuthorName)
	assert.Equal(t, "bob", comments[1].AuthorName)

	_, err = f.svc.AddComment(ctx, f.bob, incident.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.AddComment(ctx, f.bob, 999, "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Comments(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestErrorKinds(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetIncident(context.Background(), 42)
	assert.Equal(t, domain.ErrNotFound, kindOf(err))
	assert.Equal(t, "incident not found", err.Error())
}
