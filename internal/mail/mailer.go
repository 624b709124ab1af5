// Package mail delivers transactional email through a configurable driver.
package mail

import (
	"context"
	"distributor-portal/internal/config"
	"fmt"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends one message. A nil error means the provider confirmed
// acceptance.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the driver configured by MAIL_DRIVER
func New(cfg config.Config, log *zap.Logger) (Mailer, error) {
	from := Sender{Email: cfg.MailFrom, Name: cfg.MailFromName}
	switch cfg.MailDriver {
	case "smtp":
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, from), nil
	case "http":
		if cfg.MailAPIURL == "" {
			return nil, fmt.Errorf("MAIL_API_URL is required for the http mail driver")
		}
		return NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, from), nil
	case "log", "":
		return NewLogMailer(log), nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
}

type Sender struct {
	Email string
	Name  string
}

func (s Sender) String() string {
	if s.Name == "" {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// LogMailer only logs messages, for development
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info("mail (log driver)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
