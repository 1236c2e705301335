package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence the service needs; *repository.Repository implements it.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	GetUsersByRoles(ctx context.Context, roles ...domain.Role) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error

	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncidentByID(ctx context.Context, id int64) (*domain.Incident, error)
	UpdateIncident(ctx context.Context, incident *domain.Incident) error
	ListIncidents(ctx context.Context, filter domain.IncidentFilter) ([]*domain.Incident, error)
	CountIncidentsByStatus(ctx context.Context) (map[domain.Status]int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetCommentsByIncident(ctx context.Context, incidentID int64) ([]*domain.Comment, error)
}

// Notifier accepts mail for asynchronous delivery; *notify.Dispatcher implements it.
type Notifier interface {
	Notify(ctx context.Context, msg domain.MailMessage) error
}

// OTPStore keeps one-time passwords; *cache.OTPStore implements it.
type OTPStore interface {
	Save(ctx context.Context, username, purpose, otp string, ttl time.Duration) error
	Get(ctx context.Context, username, purpose string) (string, error)
	RecordFailure(ctx context.Context, username, purpose string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, username, purpose string) error
}

type Options struct {
	BaseURL       string
	OTPExpiration time.Duration
	BcryptCost    int
	Logger        *slog.Logger
	Now           func() time.Time
}

type Service struct {
	store    Store
	notifier Notifier
	otps     OTPStore
	opts     Options
	logger   *slog.Logger
}

func New(store Store, notifier Notifier, otps OTPStore, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.OTPExpiration == 0 {
		opts.OTPExpiration = 15 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		notifier: notifier,
		otps:     otps,
		opts:     opts,
		logger:   logger,
	}
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}
