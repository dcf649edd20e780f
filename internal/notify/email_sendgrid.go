package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// sendgridAPI is the part of *sendgrid.Client the sender uses.
type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Category tags every message so clinic mail can be filtered in the SendGrid console.
	Category string
}

// SendGridSender delivers appointment mail through the SendGrid v3 API.
type SendGridSender struct {
	api      sendgridAPI
	from     *mail.Email
	category string
	logger   *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newSendGridSender(api sendgridAPI, cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	if cfg.Category == "" {
		cfg.Category = "appointments"
	}
	return &SendGridSender{
		api:      api,
		from:     mail.NewEmail(cfg.FromName, cfg.FromEmail),
		category: cfg.Category,
		logger:   logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.api == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	resp, err := s.api.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send to %s: %w", msg.To, err)
	}
	// SendGrid answers 202 Accepted; anything 4xx/5xx carries a JSON error body.
	if resp.StatusCode >= 300 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "subject", msg.Subject)
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	s.logger.Debug("email accepted by sendgrid", "subject", msg.Subject)
	return nil
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	m.AddCategories(s.category)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)

	// text/plain must precede text/html in the v3 content array.
	m.AddContent(mail.NewContent("text/plain", msg.Body))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}
