package repository

import (
	"context"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		WITH inserted AS (
			INSERT INTO comments (content, incident_id, author_id, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, author_id
		)
		SELECT inserted.id, users.username
		FROM inserted JOIN users ON users.id = inserted.author_id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{comment.Content, comment.IncidentID, comment.AuthorID, comment.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&comment.ID, &comment.AuthorName); err != nil {
		return translate(err)
	}

	return nil
}

func (r *Repository) GetCommentsByIncident(ctx context.Context, incidentID int64) ([]*domain.Comment, error) {
	query := `
		SELECT c.id, c.content, c.incident_id, c.author_id, u.username, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.incident_id = $1
		ORDER BY c.created_at, c.id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		comment := &domain.Comment{}
		dst := []any{&comment.ID, &comment.Content, &comment.IncidentID, &comment.AuthorID, &comment.AuthorName, &comment.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}
