package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages map[string]*template.Template

var pageNames = []string{"login", "register", "dashboard", "incidents", "incident_form", "incident", "assign"}

var templateFuncs = template.FuncMap{
	"fmtTime": formatTime,
	"label":   label,
	"derefID": func(id *int64) int64 {
		if id == nil {
			return 0
		}
		return *id
	},
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Local().Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	default:
		return ""
	}
}

// label turns an enum value such as in_progress into "In progress".
func label(v any) string {
	s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func parsePages() (pages, error) {
	base, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		p[name] = t
	}

	return p, nil
}

type pageData struct {
	Title string
	User  *domain.User
	Flash *flash
	Data  any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	t, ok := h.pages[name]
	if !ok {
		h.logInternalServerError(r, fmt.Errorf("unknown page %q", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, _ := r.Context().Value(UserCtx).(*domain.User)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pageData{
		Title: title,
		User:  user,
		Flash: popFlash(w, r),
		Data:  data,
	}); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}
