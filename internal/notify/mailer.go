package notify

import (
	"context"
	"fmt"

	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// Mailer renders messages and delivers them over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		return nil, err
	}

	return &Mailer{client: client, from: cfg.Email.SMTP.Username}, nil
}

func (m *Mailer) Client() *mail.Client {
	return m.client
}

// Build turns a queued message into a multipart/alternative mail.
func (m *Mailer) Build(msg domain.MailMessage) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("message %s has no recipients", msg.Type)
	}

	rendered, err := Render(msg)
	if err != nil {
		return nil, err
	}

	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	out.Subject(rendered.Subject)
	out.SetBodyString(mail.TypeTextPlain, rendered.Text)
	out.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)

	return out, nil
}

func (m *Mailer) Send(ctx context.Context, msg domain.MailMessage) error {
	out, err := m.Build(msg)
	if err != nil {
		return err
	}
	return m.client.DialAndSendWithContext(ctx, out)
}

func (m *Mailer) Close() error {
	return m.client.Close()
}
