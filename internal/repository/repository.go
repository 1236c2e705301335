package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return domain.ErrDuplicateUsername
		case "users_email_key":
			return domain.ErrDuplicateEmail
		case "incidents_assignee_id_fkey", "incidents_creator_id_fkey":
			return domain.Errorf(domain.ErrInvalidArgument, "referenced user does not exist")
		case "comments_incident_id_fkey":
			return domain.Errorf(domain.ErrNotFound, "incident not found")
		}

		// string_data_right_truncation carries no constraint name
		if pgErr.Code == "22001" {
			return domain.Errorf(domain.ErrInvalidArgument, "value too long")
		}
	}

	return err
}
