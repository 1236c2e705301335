package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

func (s *Service) incidentURL(id int64) string {
	return fmt.Sprintf("%s/incidents/%d", strings.TrimRight(s.opts.BaseURL, "/"), id)
}

func (s *Service) incidentMailData(incident *domain.Incident, creator, assignee, actor *domain.User) domain.IncidentMailData {
	data := domain.IncidentMailData{
		IncidentID:   incident.ID,
		Title:        incident.Title,
		Description:  incident.Description,
		Priority:     string(incident.Priority),
		Status:       string(incident.Status),
		IncidentType: incident.IncidentType,
		URL:          s.incidentURL(incident.ID),
	}
	if creator != nil {
		data.CreatorName = creator.Username
	}
	if assignee != nil {
		data.AssigneeName = assignee.Username
	}
	if actor != nil {
		data.ActorName = actor.Username
	}
	return data
}

// send hands the message to the notifier. Failures are logged and never reach the caller.
func (s *Service) send(ctx context.Context, typ domain.MailType, recipients []string, data any) {
	recipients = uniqueEmails(recipients)
	if len(recipients) == 0 {
		return
	}

	msg, err := domain.NewMailMessage(typ, recipients, data)
	if err != nil {
		s.logger.Error("failed to build notification", "type", typ, "error", err)
		return
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error("failed to enqueue notification", "type", typ, "recipients", len(recipients), "error", err)
	}
}

func uniqueEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		if email == "" || slices.Contains(out, email) {
			continue
		}
		out = append(out, email)
	}
	return out
}

// notifyCreated mails every admin and manager.
func (s *Service) notifyCreated(ctx context.Context, actor *domain.User, incident *domain.Incident) {
	users, err := s.store.GetUsersByRoles(ctx, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		s.logger.Error("failed to load notification recipients", "type", domain.MailIncidentCreated, "incident", incident.ID, "error", err)
		return
	}

	recipients := make([]string, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, user.Email)
	}

	s.send(ctx, domain.MailIncidentCreated, recipients, s.incidentMailData(incident, actor, nil, actor))
}

// notifyAssigned mails the assignee only.
func (s *Service) notifyAssigned(ctx context.Context, actor *domain.User, incident *domain.Incident, assignee *domain.User) {
	s.send(ctx, domain.MailIncidentAssigned, []string{assignee.Email}, s.incidentMailData(incident, nil, assignee, actor))
}

// notifyStatusChanged mails the creator, plus the assignee when that is neither the actor nor the
// creator. Recipients are read after the change was committed. A recipient that cannot be loaded
// is logged and skipped; the others are still notified.
func (s *Service) notifyStatusChanged(ctx context.Context, actor *domain.User, incident *domain.Incident) {
	recipients := make([]string, 0, 2)

	creator, err := s.store.GetUserByID(ctx, incident.CreatorID)
	if err != nil {
		s.logger.Error("failed to load incident creator", "incident", incident.ID, "error", err)
		creator = nil
	} else {
		recipients = append(recipients, creator.Email)
	}

	var assignee *domain.User
	if incident.AssigneeID != nil {
		assigneeID := *incident.AssigneeID
		assignee, err = s.store.GetUserByID(ctx, assigneeID)
		switch {
		case err != nil:
			s.logger.Error("failed to load incident assignee", "incident", incident.ID, "error", err)
			assignee = nil
		case assigneeID == actor.ID:
		case assigneeID == incident.CreatorID && creator != nil:
		default:
			recipients = append(recipients, assignee.Email)
		}
	}

	s.send(ctx, domain.MailIncidentStatusChanged, recipients, s.incidentMailData(incident, creator, assignee, actor))
}
