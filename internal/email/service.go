package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/uhcare-api/internal/channel"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPTransport sends email through an SMTP relay.
type SMTPTransport struct {
	cfg  SMTPConfig
	send func(m *gomail.Message) error
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	t := &SMTPTransport{cfg: cfg}
	t.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return d.DialAndSend(m)
	}
	return t
}

var _ channel.Transport = (*SMTPTransport)(nil)

func (t *SMTPTransport) Configured() bool {
	return t.cfg.Host != "" && t.cfg.From != ""
}

func (t *SMTPTransport) Send(ctx context.Context, msg channel.Message) error {
	if !t.Configured() {
		return channel.ErrUnconfigured
	}

	m := gomail.NewMessage()
	if t.cfg.FromName != "" {
		m.SetAddressHeader("From", t.cfg.From, t.cfg.FromName)
	} else {
		m.SetHeader("From", t.cfg.From)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := channel.Run(ctx, func() error { return t.send(m) }); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
