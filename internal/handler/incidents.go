package handler

import (
	"net/http"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/service"
)

func filterFromQuery(r *http.Request) domain.IncidentFilter {
	query := r.URL.Query()
	return domain.IncidentFilter{
		Status:       domain.Status(query.Get("status")),
		Priority:     domain.Priority(query.Get("priority")),
		IncidentType: query.Get("type"),
	}
}

func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.service.ListIncidents(r.Context(), filterFromQuery(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{"incidents": incidents})
}

func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), incidentIDFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, incident)
}

func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string `json:"title" validate:"required,max=100"`
		Description  string `json:"description" validate:"required"`
		IncidentType string `json:"incident_type" validate:"required,max=50"`
		Priority     string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), userFromContext(r.Context()), service.CreateIncidentInput{
		Title:        req.Title,
		Description:  req.Description,
		IncidentType: req.IncidentType,
		Priority:     domain.Priority(req.Priority),
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, envelope{"message": "Incident created successfully", "incident": incident})
}

func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		IncidentType *string `json:"incident_type"`
		Priority     *string `json:"priority"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := service.UpdateIncidentInput{
		Title:        req.Title,
		Description:  req.Description,
		IncidentType: req.IncidentType,
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		in.Priority = &priority
	}

	// field values are checked by the service after the permission check
	incident, err := h.service.UpdateIncident(r.Context(), userFromContext(r.Context()), incidentIDFromContext(r.Context()), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{"message": "Incident updated successfully", "incident": incident})
}

func (h *Handler) AssignIncident(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssigneeID *int64 `json:"assignee_id" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	incident, err := h.service.AssignIncident(r.Context(), userFromContext(r.Context()), incidentIDFromContext(r.Context()), *req.AssigneeID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{"message": "Incident assigned successfully", "incident": incident})
}

func (h *Handler) UpdateIncidentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	incident, err := h.service.UpdateStatus(r.Context(), userFromContext(r.Context()), incidentIDFromContext(r.Context()), domain.Status(req.Status))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{"message": "Incident status updated successfully", "incident": incident})
}

func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.Comments(r.Context(), incidentIDFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{"comments": comments})
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	comment, err := h.service.AddComment(r.Context(), userFromContext(r.Context()), incidentIDFromContext(r.Context()), req.Content)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, envelope{"message": "Comment added successfully", "comment": comment})
}
