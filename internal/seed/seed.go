package seed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/utils"
)

// Store is the subset of the repository the seeder writes through.
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	CreateComment(ctx context.Context, comment *domain.Comment) error
}

var ErrNoUsers = errors.New("no users to own incidents, seed users first")

var commentLines = []string{
	"Looking into it.",
	"Reproduced on the staging environment.",
	"Vendor ticket opened.",
	"Rolled back the last change, monitoring.",
	"Root cause identified, fix scheduled.",
	"Cannot reproduce anymore, please confirm.",
}

type Seeder struct {
	store  Store
	logger *slog.Logger
	rnd    *rand.Rand
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:  store,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Users inserts up to n random accounts and returns how many were stored.
// Username collisions are logged and skipped.
func (s *Seeder) Users(ctx context.Context, n int, password, emailDomain string) (int, error) {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			return cnt, err
		}

		if err := s.store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
				s.logger.Warn("skipping duplicate user", slog.String("username", user.Username))
				continue
			}
			return cnt, err
		}

		cnt++
	}

	return cnt, nil
}

// Incidents inserts n random incidents owned by existing users. Each incident gets a
// lifecycle consistent with its status: open ones are unassigned, the others have an
// assignee, and resolved or closed ones carry a resolution time.
func (s *Seeder) Incidents(ctx context.Context, n int) (int, error) {
	users, err := s.store.GetAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, ErrNoUsers
	}

	cnt := 0
	for i := 0; i < n; i++ {
		incident := s.incident(users)
		if err := s.store.CreateIncident(ctx, incident); err != nil {
			return cnt, err
		}

		if err := s.comments(ctx, incident); err != nil {
			return cnt, err
		}

		cnt++
	}

	return cnt, nil
}

func (s *Seeder) pick(users []*domain.User) *domain.User {
	return users[s.rnd.Intn(len(users))]
}

func (s *Seeder) incident(users []*domain.User) *domain.Incident {
	incident := utils.GenerateRandomIncident()

	createdAt := s.now().UTC().Add(-time.Duration(s.rnd.Intn(30*24)+1) * time.Hour).Truncate(time.Second)
	incident.CreatorID = s.pick(users).ID
	incident.Status = utils.GenerateRandomStatus()
	incident.CreatedAt = createdAt
	incident.UpdatedAt = createdAt

	if incident.Status == domain.StatusOpen {
		return incident
	}

	assigneeID := s.pick(users).ID
	incident.AssigneeID = &assigneeID
	incident.UpdatedAt = createdAt.Add(time.Duration(s.rnd.Intn(60)+1) * time.Minute)

	if incident.Status == domain.StatusResolved || incident.Status == domain.StatusClosed {
		resolvedAt := incident.UpdatedAt.Add(time.Duration(s.rnd.Intn(48)+1) * time.Hour)
		incident.ResolvedAt = &resolvedAt
		incident.UpdatedAt = resolvedAt
	}

	return incident
}

// comments adds up to two remarks from the creator or the assignee.
func (s *Seeder) comments(ctx context.Context, incident *domain.Incident) error {
	authors := []int64{incident.CreatorID}
	if incident.AssigneeID != nil {
		authors = append(authors, *incident.AssigneeID)
	}

	for i := 0; i < s.rnd.Intn(3); i++ {
		comment := &domain.Comment{
			Content:    commentLines[s.rnd.Intn(len(commentLines))],
			IncidentID: incident.ID,
			AuthorID:   authors[s.rnd.Intn(len(authors))],
			CreatedAt:  incident.CreatedAt.Add(time.Duration(i+1) * time.Minute),
		}
		if err := s.store.CreateComment(ctx, comment); err != nil {
			return err
		}
	}

	return nil
}
