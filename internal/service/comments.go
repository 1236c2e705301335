package service

import (
	"context"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

// AddComment is open to every authenticated user.
func (s *Service) AddComment(ctx context.Context, actor *domain.User, incidentID int64, content string) (*domain.Comment, error) {
	if _, err := s.loadIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "no comment content provided")
	}

	comment := &domain.Comment{
		Content:    content,
		IncidentID: incidentID,
		AuthorID:   actor.ID,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *Service) Comments(ctx context.Context, incidentID int64) ([]*domain.Comment, error) {
	if _, err := s.loadIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	return s.store.GetCommentsByIncident(ctx, incidentID)
}
