package notify

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds SMTP credentials. Gmail with an app password works with the
// defaults: smtp.gmail.com on 465 (implicit TLS).
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	dialer    mailDialer
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSMTPSender returns nil without credentials.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	return newSMTPSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg, logger)
}

func newSMTPSender(d mailDialer, cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SMTPSender{dialer: d, fromEmail: cfg.FromEmail, fromName: cfg.FromName, logger: logger}
}

// Send dials per message. gomail has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("smtp send failed", "error", err)
		return fmt.Errorf("notify: smtp send failed: %w", err)
	}
	s.logger.Info("email sent via smtp", "subject", msg.Subject)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
