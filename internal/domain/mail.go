package domain

import "encoding/json"

type MailType string

const (
	MailIncidentCreated       MailType = "incident_created"
	MailIncidentAssigned      MailType = "incident_assigned"
	MailIncidentStatusChanged MailType = "incident_status_changed"
	MailResetPassword         MailType = "reset_password"
)

// MailMessage is the unit carried through the notification queue.
type MailMessage struct {
	Type MailType        `json:"type"`
	To   []string        `json:"to"`
	Data json.RawMessage `json:"data"`
}

func NewMailMessage(typ MailType, to []string, data any) (MailMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return MailMessage{}, err
	}
	return MailMessage{Type: typ, To: to, Data: raw}, nil
}

type IncidentMailData struct {
	IncidentID   int64  `json:"incidentId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	IncidentType string `json:"incidentType"`
	CreatorName  string `json:"creatorName"`
	AssigneeName string `json:"assigneeName"`
	ActorName    string `json:"actorName"`
	URL          string `json:"url"`
}

type ResetPasswordMailData struct {
	Username   string `json:"username"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
