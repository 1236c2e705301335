package notify

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
)

type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Render builds the subject and both bodies for a queued message.
func Render(msg domain.MailMessage) (*Rendered, error) {
	var (
		data    any
		subject string
	)

	switch msg.Type {
	case domain.MailIncidentCreated, domain.MailIncidentAssigned, domain.MailIncidentStatusChanged:
		d := domain.IncidentMailData{}
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", msg.Type, err)
		}
		data = d
		subject = incidentSubject(msg.Type, d.Title)
	case domain.MailResetPassword:
		d := domain.ResetPasswordMailData{}
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", msg.Type, err)
		}
		data = d
		subject = "Incident Tracker - Reset your password"
	default:
		return nil, fmt.Errorf("unsupported mail type %q", msg.Type)
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, string(msg.Type)+".txt", data); err != nil {
		return nil, err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, string(msg.Type)+".html", data); err != nil {
		return nil, err
	}

	return &Rendered{
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func incidentSubject(typ domain.MailType, title string) string {
	switch typ {
	case domain.MailIncidentCreated:
		return "New Incident: " + title
	case domain.MailIncidentAssigned:
		return "Incident Assigned: " + title
	default:
		return "Incident Status Update: " + title
	}
}
