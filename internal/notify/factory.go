package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// EmailSender delivers one message. SMTP, SendGrid and SES are interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain text email with an optional HTML alternative.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

const defaultFromName = "Clinic Front Desk"

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)

// NewEmailSender selects the provider named by EMAIL_PROVIDER. A provider
// that is selected but missing credentials is a startup error.
func NewEmailSender(cfg *config.Config, ses *sesv2.Client, logger *logging.Logger) (EmailSender, error) {
	switch cfg.EmailProvider {
	case "", "stub":
		return NewStubEmailSender(logger), nil
	case "smtp", "gmail":
		s := NewSMTPSender(SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if s == nil {
			return nil, fmt.Errorf("notify: SMTP_USERNAME and SMTP_PASSWORD are required for smtp")
		}
		return s, nil
	case "sendgrid":
		s := NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if s == nil {
			return nil, fmt.Errorf("notify: SENDGRID_API_KEY is required for sendgrid")
		}
		return s, nil
	case "ses":
		s := NewSESSender(ses, SESConfig{FromEmail: cfg.EmailFromAddress, FromName: cfg.EmailFromName}, logger)
		if s == nil {
			return nil, fmt.Errorf("notify: AWS configuration is required for ses")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", cfg.EmailProvider)
	}
}

// StubEmailSender only logs. It is the default so a fresh checkout never
// emails real patients.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent, stub provider", "subject", msg.Subject)
	return nil
}
