// Package servicetest provides in-memory stand-ins for the service's dependencies.
package servicetest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

// Store mirrors the repository's behavior in memory. Values are copied on the way in and out
// so callers never share state with the store.
type Store struct {
	mu        sync.Mutex
	users     map[int64]domain.User
	incidents map[int64]domain.Incident
	comments  []domain.Comment
	nextID    int64
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		incidents: make(map[int64]domain.Incident),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser inserts a user directly, keeping a non-zero ID when given.
func (s *Store) AddUser(user domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.id()
	} else if user.ID > s.nextID {
		s.nextID = user.ID
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return &user
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, &user)
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return cmp.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *Store) GetUsersByRoles(_ context.Context, roles ...domain.Role) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*domain.User, 0)
	for _, user := range s.users {
		if slices.Contains(roles, user.Role) {
			users = append(users, &user)
		}
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
		if existing.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}

	user.ID = s.id()
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.PasswordHash = user.PasswordHash
	stored.Email = user.Email
	s.users[user.ID] = stored

	user.Username = stored.Username
	user.Role = stored.Role
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) checkUserRefs(incident *domain.Incident) error {
	if _, ok := s.users[incident.CreatorID]; !ok {
		return domain.Errorf(domain.ErrInvalidArgument, "referenced user does not exist")
	}
	if incident.AssigneeID != nil {
		if _, ok := s.users[*incident.AssigneeID]; !ok {
			return domain.Errorf(domain.ErrInvalidArgument, "referenced user does not exist")
		}
	}
	return nil
}

func copyIncident(incident domain.Incident) *domain.Incident {
	if incident.AssigneeID != nil {
		assigneeID := *incident.AssigneeID
		incident.AssigneeID = &assigneeID
	}
	if incident.ResolvedAt != nil {
		resolvedAt := *incident.ResolvedAt
		incident.ResolvedAt = &resolvedAt
	}
	return &incident
}

func (s *Store) CreateIncident(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUserRefs(incident); err != nil {
		return err
	}

	incident.ID = s.id()
	s.incidents[incident.ID] = *copyIncident(*incident)
	return nil
}

func (s *Store) GetIncidentByID(_ context.Context, id int64) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyIncident(incident), nil
}

func (s *Store) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.incidents[incident.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := s.checkUserRefs(incident); err != nil {
		return err
	}

	updated := *copyIncident(*incident)
	updated.CreatorID = stored.CreatorID
	updated.CreatedAt = stored.CreatedAt
	s.incidents[incident.ID] = updated

	incident.CreatorID = stored.CreatorID
	incident.CreatedAt = stored.CreatedAt
	return nil
}

func matches(incident domain.Incident, filter domain.IncidentFilter) bool {
	switch {
	case filter.Status != "" && incident.Status != filter.Status:
		return false
	case filter.Priority != "" && incident.Priority != filter.Priority:
		return false
	case filter.IncidentType != "" && incident.IncidentType != filter.IncidentType:
		return false
	case filter.CreatorID != 0 && incident.CreatorID != filter.CreatorID:
		return false
	case filter.AssigneeID != 0 && (incident.AssigneeID == nil || *incident.AssigneeID != filter.AssigneeID):
		return false
	case filter.ExcludeClosed && incident.Status == domain.StatusClosed:
		return false
	}
	return true
}

// ListIncidents orders newest first, breaking ties by descending id.
func (s *Store) ListIncidents(_ context.Context, filter domain.IncidentFilter) ([]*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incidents := make([]*domain.Incident, 0)
	for _, incident := range s.incidents {
		if matches(incident, filter) {
			incidents = append(incidents, copyIncident(incident))
		}
	}

	slices.SortFunc(incidents, func(a, b *domain.Incident) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if filter.Limit > 0 && len(incidents) > filter.Limit {
		incidents = incidents[:filter.Limit]
	}
	return incidents, nil
}

func (s *Store) CountIncidentsByStatus(_ context.Context) (map[domain.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, incident := range s.incidents {
		counts[incident.Status]++
	}
	return counts, nil
}

func (s *Store) CreateComment(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[comment.IncidentID]; !ok {
		return domain.Errorf(domain.ErrNotFound, "incident not found")
	}
	author, ok := s.users[comment.AuthorID]
	if !ok {
		return domain.Errorf(domain.ErrInvalidArgument, "referenced user does not exist")
	}

	comment.ID = s.id()
	comment.AuthorName = author.Username
	s.comments = append(s.comments, *comment)
	return nil
}

func (s *Store) GetCommentsByIncident(_ context.Context, incidentID int64) ([]*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := make([]*domain.Comment, 0)
	for _, comment := range s.comments {
		if comment.IncidentID == incidentID {
			comments = append(comments, &comment)
		}
	}

	slices.SortFunc(comments, func(a, b *domain.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return comments, nil
}
