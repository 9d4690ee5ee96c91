package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/pgvault/pgvault/internal/config"
)

// EmailNotifier sends run outcomes over SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewEmail(cfg *config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, subject, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email notification: %w", err)
	}
	return nil
}
