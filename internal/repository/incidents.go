package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

const incidentColumns = `id, title, description, priority, status, incident_type, creator_id, assignee_id, created_at, updated_at, resolved_at`

func incidentDst(incident *domain.Incident) []any {
	return []any{
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Priority,
		&incident.Status,
		&incident.IncidentType,
		&incident.CreatorID,
		&incident.AssigneeID,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	}
}

func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (title, description, priority, status, incident_type, creator_id, assignee_id, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		incident.Title,
		incident.Description,
		incident.Priority,
		incident.Status,
		incident.IncidentType,
		incident.CreatorID,
		incident.AssigneeID,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.ResolvedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&incident.ID); err != nil {
		return translate(err)
	}

	return nil
}

func (r *Repository) GetIncidentByID(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	incident := &domain.Incident{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(incidentDst(incident)...); err != nil {
		return nil, translate(err)
	}

	return incident, nil
}

// UpdateIncident writes every mutable column. Concurrent writers are not detected; the last commit wins.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET
			title = $1,
			description = $2,
			priority = $3,
			status = $4,
			incident_type = $5,
			assignee_id = $6,
			updated_at = $7,
			resolved_at = $8
		WHERE id = $9
		RETURNING creator_id, created_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		incident.Title,
		incident.Description,
		incident.Priority,
		incident.Status,
		incident.IncidentType,
		incident.AssigneeID,
		incident.UpdatedAt,
		incident.ResolvedAt,
		incident.ID,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&incident.CreatorID, &incident.CreatedAt); err != nil {
		return translate(err)
	}

	return nil
}

func (r *Repository) ListIncidents(ctx context.Context, filter domain.IncidentFilter) ([]*domain.Incident, error) {
	query, args := buildIncidentQuery(filter)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		incident := &domain.Incident{}
		if err := rows.Scan(incidentDst(incident)...); err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return incidents, nil
}

func buildIncidentQuery(filter domain.IncidentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		add("priority = $%d", filter.Priority)
	}
	if filter.IncidentType != "" {
		add("incident_type = $%d", filter.IncidentType)
	}
	if filter.CreatorID != 0 {
		add("creator_id = $%d", filter.CreatorID)
	}
	if filter.AssigneeID != 0 {
		add("assignee_id = $%d", filter.AssigneeID)
	}
	if filter.ExcludeClosed {
		add("status <> $%d", domain.StatusClosed)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + incidentColumns + " FROM incidents")
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return sb.String(), args
}

func (r *Repository) CountIncidentsByStatus(ctx context.Context) (map[domain.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM incidents GROUP BY status`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.Statuses))
	for rows.Next() {
		var (
			status domain.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
