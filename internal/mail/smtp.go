package mail

import (
	"context"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   Sender
}

func NewSMTPMailer(cfg SMTPConfig, from Sender) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func buildMessage(from Sender, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from.String())
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}

// Send dials per message. gomail has no context support, so cancellation is
// honoured by abandoning the wait; the dial itself finishes in background.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(buildMessage(s.from, msg))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
