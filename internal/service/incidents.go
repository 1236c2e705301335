package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

type CreateIncidentInput struct {
	Title        string
	Description  string
	IncidentType string
	Priority     domain.Priority
}

type UpdateIncidentInput struct {
	Title        *string
	Description  *string
	IncidentType *string
	Priority     *domain.Priority
}

func (in UpdateIncidentInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.IncidentType == nil && in.Priority == nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return domain.Errorf(domain.ErrInvalidArgument, "%s must be at most %d characters", field, limit)
	}
	return nil
}

func (s *Service) loadIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	incident, err := s.store.GetIncidentByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "incident not found")
		}
		return nil, err
	}
	return incident, nil
}

func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.loadIncident(ctx, id)
}

func (s *Service) ListIncidents(ctx context.Context, filter domain.IncidentFilter) ([]*domain.Incident, error) {
	return s.store.ListIncidents(ctx, filter)
}

func (s *Service) CreateIncident(ctx context.Context, actor *domain.User, in CreateIncidentInput) (*domain.Incident, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	incidentType := strings.TrimSpace(in.IncidentType)

	switch {
	case title == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: title")
	case description == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: description")
	case incidentType == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: incident_type")
	}
	if err := checkLength("title", title, domain.MaxTitleLength); err != nil {
		return nil, err
	}
	if err := checkLength("incident_type", incidentType, domain.MaxIncidentTypeLength); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "invalid priority value")
	}

	now := s.now()
	incident := &domain.Incident{
		Title:        title,
		Description:  description,
		Priority:     priority,
		Status:       domain.StatusOpen,
		IncidentType: incidentType,
		CreatorID:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateIncident(ctx, incident); err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, actor, incident)

	return incident, nil
}

func (s *Service) UpdateIncident(ctx context.Context, actor *domain.User, id int64, in UpdateIncidentInput) (*domain.Incident, error) {
	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanEdit(actor, incident) {
		return nil, domain.Errorf(domain.ErrForbidden, "you do not have permission to update this incident")
	}

	if in.empty() {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "no data provided")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "title must not be empty")
		}
		if err := checkLength("title", title, domain.MaxTitleLength); err != nil {
			return nil, err
		}
		incident.Title = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "description must not be empty")
		}
		incident.Description = description
	}
	if in.IncidentType != nil {
		incidentType := strings.TrimSpace(*in.IncidentType)
		if incidentType == "" {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "incident_type must not be empty")
		}
		if err := checkLength("incident_type", incidentType, domain.MaxIncidentTypeLength); err != nil {
			return nil, err
		}
		incident.IncidentType = incidentType
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "invalid priority value")
		}
		incident.Priority = *in.Priority
	}

	incident.UpdatedAt = s.now()

	if err := s.store.UpdateIncident(ctx, incident); err != nil {
		return nil, err
	}

	return incident, nil
}

// AssignIncident sets the assignee and moves the incident to in_progress whatever its prior status.
func (s *Service) AssignIncident(ctx context.Context, actor *domain.User, id int64, assigneeID int64) (*domain.Incident, error) {
	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanAssign(actor, incident) {
		return nil, domain.Errorf(domain.ErrForbidden, "you do not have permission to assign this incident")
	}

	assignee, err := s.store.GetUserByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "invalid assignee_id")
		}
		return nil, err
	}

	incident.AssigneeID = &assignee.ID
	incident.Status = domain.StatusInProgress
	incident.UpdatedAt = s.now()

	if err := s.store.UpdateIncident(ctx, incident); err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, actor, incident, assignee)

	return incident, nil
}

// UpdateStatus changes the lifecycle status. resolved_at is stamped on every move to resolved and
// is kept when the incident later leaves that status.
func (s *Service) UpdateStatus(ctx context.Context, actor *domain.User, id int64, status domain.Status) (*domain.Incident, error) {
	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanUpdateStatus(actor, incident) {
		return nil, domain.Errorf(domain.ErrForbidden, "you do not have permission to update the status of this incident")
	}

	if !status.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "invalid status value")
	}

	now := s.now()
	incident.Status = status
	if status == domain.StatusResolved {
		resolvedAt := now
		incident.ResolvedAt = &resolvedAt
	}
	incident.UpdatedAt = now

	if err := s.store.UpdateIncident(ctx, incident); err != nil {
		return nil, err
	}

	s.notifyStatusChanged(ctx, actor, incident)

	return incident, nil
}

type Dashboard struct {
	OpenIncidents    []*domain.Incident
	MyIncidents      []*domain.Incident
	CreatedIncidents []*domain.Incident
	Counts           map[domain.Status]int
	Total            int
}

func (s *Service) Dashboard(ctx context.Context, actor *domain.User) (*Dashboard, error) {
	open, err := s.store.ListIncidents(ctx, domain.IncidentFilter{ExcludeClosed: true})
	if err != nil {
		return nil, err
	}

	mine, err := s.store.ListIncidents(ctx, domain.IncidentFilter{AssigneeID: actor.ID, ExcludeClosed: true})
	if err != nil {
		return nil, err
	}

	created, err := s.store.ListIncidents(ctx, domain.IncidentFilter{CreatorID: actor.ID, Limit: 5})
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountIncidentsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &Dashboard{
		OpenIncidents:    open,
		MyIncidents:      mine,
		CreatedIncidents: created,
		Counts:           counts,
		Total:            total,
	}, nil
}
