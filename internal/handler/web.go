package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/service"
)

// webFail reports a service error to a browser: known kinds become a flash message and a
// redirect, anything else is a plain 500.
func (h *Handler) webFail(w http.ResponseWriter, r *http.Request, err error, back string) {
	if errorStatus(err) == http.StatusInternalServerError {
		h.logInternalServerError(r, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		back = "/incidents"
	}

	h.setFlash(w, flashError, err.Error())
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) webSucceed(w http.ResponseWriter, r *http.Request, msg, to string) {
	h.setFlash(w, flashSuccess, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func incidentPath(id int64) string {
	return fmt.Sprintf("/incidents/%d", id)
}

func (h *Handler) usernames(r *http.Request) (map[int64]string, error) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Username
	}
	return names, nil
}

func (h *Handler) WebIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := h.userFromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) WebLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", "Log in", nil)
}

func (h *Handler) WebLogin(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.webFail(w, r, err, "/login")
		return
	}

	token, expiration, err := h.issueToken(user)
	if err != nil {
		h.webFail(w, r, err, "/login")
		return
	}

	h.setTokenCookie(w, token, expiration)
	h.webSucceed(w, r, "Welcome back, "+user.Username, "/dashboard")
}

func (h *Handler) WebRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register", "Register", nil)
}

func (h *Handler) WebRegister(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("password") != r.PostFormValue("confirm_password") {
		h.webFail(w, r, domain.Errorf(domain.ErrInvalidArgument, "passwords do not match"), "/register")
		return
	}

	_, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		h.webFail(w, r, err, "/register")
		return
	}

	h.webSucceed(w, r, "Registration successful, please log in", "/login")
}

func (h *Handler) WebLogout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w)
	h.webSucceed(w, r, "You have been logged out", "/login")
}

func (h *Handler) WebDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context(), userFromContext(r.Context()))
	if err != nil {
		h.webFail(w, r, err, "/")
		return
	}

	names, err := h.usernames(r)
	if err != nil {
		h.webFail(w, r, err, "/")
		return
	}

	h.render(w, r, "dashboard", "Dashboard", struct {
		*service.Dashboard
		Users    map[int64]string
		Statuses []domain.Status
	}{dashboard, names, domain.Statuses})
}

func (h *Handler) WebListIncidents(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	incidents, err := h.service.ListIncidents(r.Context(), filter)
	if err != nil {
		h.webFail(w, r, err, "/dashboard")
		return
	}

	names, err := h.usernames(r)
	if err != nil {
		h.webFail(w, r, err, "/dashboard")
		return
	}

	h.render(w, r, "incidents", "Incidents", struct {
		Incidents  []*domain.Incident
		Filter     domain.IncidentFilter
		Users      map[int64]string
		Statuses   []domain.Status
		Priorities []domain.Priority
		Types      []string
	}{incidents, filter, names, domain.Statuses, domain.Priorities, domain.IncidentTypes})
}

type incidentFormData struct {
	Incident   *domain.Incident
	Action     string
	Priorities []domain.Priority
	Types      []string
}

func (h *Handler) WebCreateIncidentPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "incident_form", "Report incident", incidentFormData{
		Action:     "/incidents/create",
		Priorities: domain.Priorities,
		Types:      domain.IncidentTypes,
	})
}

func (h *Handler) WebCreateIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.CreateIncident(r.Context(), userFromContext(r.Context()), service.CreateIncidentInput{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		IncidentType: r.PostFormValue("incident_type"),
		Priority:     domain.Priority(r.PostFormValue("priority")),
	})
	if err != nil {
		h.webFail(w, r, err, "/incidents/create")
		return
	}

	h.webSucceed(w, r, "Incident created successfully", incidentPath(incident.ID))
}

func (h *Handler) WebViewIncident(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	incident, err := h.service.GetIncident(r.Context(), incidentIDFromContext(r.Context()))
	if err != nil {
		h.webFail(w, r, err, "/incidents")
		return
	}

	comments, err := h.service.Comments(r.Context(), incident.ID)
	if err != nil {
		h.webFail(w, r, err, "/incidents")
		return
	}

	names, err := h.usernames(r)
	if err != nil {
		h.webFail(w, r, err, "/incidents")
		return
	}

	h.render(w, r, "incident", incident.Title, struct {
		Incident        *domain.Incident
		Comments        []*domain.Comment
		Users           map[int64]string
		Statuses        []domain.Status
		CanEdit         bool
		CanAssign       bool
		CanUpdateStatus bool
	}{
		Incident:        incident,
		Comments:        comments,
		Users:           names,
		Statuses:        domain.Statuses,
		CanEdit:         domain.CanEdit(user, incident),
		CanAssign:       domain.CanAssign(user, incident),
		CanUpdateStatus: domain.CanUpdateStatus(user, incident),
	})
}

func (h *Handler) WebEditIncidentPage(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), incidentIDFromContext(r.Context()))
	if err != nil {
		h.webFail(w, r, err, "/incidents")
		return
	}

	if !domain.CanEdit(userFromContext(r.Context()), incident) {
		h.webFail(w, r, domain.Errorf(domain.ErrForbidden, "you do not have permission to update this incident"), incidentPath(incident.ID))
		return
	}

	h.render(w, r, "incident_form", "Edit incident", incidentFormData{
		Incident:   incident,
		Action:     incidentPath(incident.ID) + "/edit",
		Priorities: domain.Priorities,
		Types:      domain.IncidentTypes,
	})
}

func (h *Handler) WebEditIncident(w http.ResponseWriter, r *http.Request) {
	id := incidentIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		h.webFail(w, r, domain.Errorf(domain.ErrInvalidArgument, "invalid form"), incidentPath(id)+"/edit")
		return
	}

	// only submitted fields are changed
	var in service.UpdateIncidentInput
	if r.PostForm.Has("title") {
		title := r.PostForm.Get("title")
		in.Title = &title
	}
	if r.PostForm.Has("description") {
		description := r.PostForm.Get("description")
		in.Description = &description
	}
	if r.PostForm.Has("incident_type") {
		incidentType := r.PostForm.Get("incident_type")
		in.IncidentType = &incidentType
	}
	if r.PostForm.Has("priority") {
		priority := domain.Priority(r.PostForm.Get("priority"))
		in.Priority = &priority
	}

	if _, err := h.service.UpdateIncident(r.Context(), userFromContext(r.Context()), id, in); err != nil {
		back := incidentPath(id) + "/edit"
		if errors.Is(err, domain.ErrForbidden) {
			back = incidentPath(id)
		}
		h.webFail(w, r, err, back)
		return
	}

	h.webSucceed(w, r, "Incident updated successfully", incidentPath(id))
}

func (h *Handler) WebAddComment(w http.ResponseWriter, r *http.Request) {
	id := incidentIDFromContext(r.Context())

	if _, err := h.service.AddComment(r.Context(), userFromContext(r.Context()), id, r.PostFormValue("content")); err != nil {
		h.webFail(w, r, err, incidentPath(id))
		return
	}

	h.webSucceed(w, r, "Comment added successfully", incidentPath(id))
}

func (h *Handler) WebAssignIncidentPage(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), incidentIDFromContext(r.Context()))
	if err != nil {
		h.webFail(w, r, err, "/incidents")
		return
	}

	if !domain.CanAssign(userFromContext(r.Context()), incident) {
		h.webFail(w, r, domain.Errorf(domain.ErrForbidden, "you do not have permission to assign this incident"), incidentPath(incident.ID))
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.webFail(w, r, err, incidentPath(incident.ID))
		return
	}

	h.render(w, r, "assign", "Assign incident", struct {
		Incident *domain.Incident
		Users    []*domain.User
	}{incident, users})
}

func (h *Handler) WebAssignIncident(w http.ResponseWriter, r *http.Request) {
	id := incidentIDFromContext(r.Context())

	assigneeID, err := strconv.ParseInt(r.PostFormValue("assignee_id"), 10, 64)
	if err != nil {
		h.webFail(w, r, domain.Errorf(domain.ErrInvalidArgument, "invalid assignee_id"), incidentPath(id)+"/assign")
		return
	}

	if _, err := h.service.AssignIncident(r.Context(), userFromContext(r.Context()), id, assigneeID); err != nil {
		h.webFail(w, r, err, incidentPath(id))
		return
	}

	h.webSucceed(w, r, "Incident assigned successfully", incidentPath(id))
}

func (h *Handler) WebUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := incidentIDFromContext(r.Context())

	status := domain.Status(r.PostFormValue("status"))
	if _, err := h.service.UpdateStatus(r.Context(), userFromContext(r.Context()), id, status); err != nil {
		h.webFail(w, r, err, incidentPath(id))
		return
	}

	h.webSucceed(w, r, "Incident status updated successfully", incidentPath(id))
}
