package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// ProfileSource returns the current clinic profile.
type ProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

// ContactLookup finds a patient's email by phone.
type ContactLookup interface {
	GetByPhone(ctx context.Context, phone string) (*patients.Patient, error)
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// WithContacts lets the notifier find emails for changes that do not carry one.
func WithContacts(c ContactLookup) NotifierOption {
	return func(n *Notifier) { n.contacts = c }
}

// WithClinicCopy emails the clinic inbox on every new booking.
func WithClinicCopy(enabled bool) NotifierOption {
	return func(n *Notifier) { n.clinicCopy = enabled }
}

// WithNotificationMetrics counts sent and failed emails.
func WithNotificationMetrics(m *metrics.NotificationMetrics) NotifierOption {
	return func(n *Notifier) { n.metrics = m }
}

// Notifier sends patient emails for ledger changes and reminders.
type Notifier struct {
	sender     EmailSender
	profiles   ProfileSource
	contacts   ContactLookup
	clinicCopy bool
	metrics    *metrics.NotificationMetrics
	logger     *logging.Logger
}

func NewNotifier(sender EmailSender, profiles ProfileSource, logger *logging.Logger, opts ...NotifierOption) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	n := &Notifier{sender: sender, profiles: profiles, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Name() string { return "email" }

// AppointmentChanged routes a committed ledger change to the matching email.
func (n *Notifier) AppointmentChanged(ctx context.Context, change appointments.Change) error {
	email := change.Email
	if email == "" {
		email = n.lookupEmail(ctx, change.Appointment.Phone)
	}

	var err error
	switch change.Kind {
	case appointments.ChangeBooked:
		err = n.AppointmentBooked(ctx, change.Appointment, email)
		if n.clinicCopy {
			err = errors.Join(err, n.clinicBookingCopy(ctx, change.Appointment))
		}
	case appointments.ChangeCancelled:
		err = n.AppointmentCancelled(ctx, change.Appointment, email)
	case appointments.ChangeRescheduled:
		err = n.AppointmentRescheduled(ctx, change.Appointment, change.PreviousDate, change.PreviousTime, email)
	}
	return err
}

func (n *Notifier) AppointmentBooked(ctx context.Context, appt appointments.Appointment, email string) error {
	return n.send(ctx, "booked", email, appt, func(p *clinic.Profile) emailView {
		return emailView{
			Heading: "Appointment Confirmation",
			Intro:   fmt.Sprintf("Your appointment at %s is confirmed. Here are the details:", p.Name),
		}
	}, func(p *clinic.Profile) string {
		return fmt.Sprintf("Appointment Confirmed: %s at %s | %s", appt.Date, appt.Time, p.Name)
	})
}

func (n *Notifier) AppointmentCancelled(ctx context.Context, appt appointments.Appointment, email string) error {
	return n.send(ctx, "cancelled", email, appt, func(p *clinic.Profile) emailView {
		return emailView{
			Heading: "Appointment Cancelled",
			Intro:   "Your appointment below has been cancelled. To rebook, chat with us or call the clinic.",
		}
	}, func(p *clinic.Profile) string {
		return fmt.Sprintf("Appointment Cancelled | %s", p.Name)
	})
}

func (n *Notifier) AppointmentRescheduled(ctx context.Context, appt appointments.Appointment, prevDate, prevTime, email string) error {
	return n.send(ctx, "rescheduled", email, appt, func(p *clinic.Profile) emailView {
		return emailView{
			Heading:      "Appointment Rescheduled",
			Intro:        "Your appointment has been moved. Your new slot is:",
			PreviousDate: prevDate,
			PreviousTime: prevTime,
		}
	}, func(p *clinic.Profile) string {
		return fmt.Sprintf("Appointment Rescheduled: %s at %s | %s", appt.Date, appt.Time, p.Name)
	})
}

func (n *Notifier) AppointmentReminder(ctx context.Context, appt appointments.Appointment, email string) error {
	return n.send(ctx, "reminder", email, appt, func(p *clinic.Profile) emailView {
		return emailView{
			Heading: "Appointment Reminder",
			Intro:   fmt.Sprintf("This is a reminder of your upcoming appointment at %s.", p.Name),
		}
	}, func(p *clinic.Profile) string {
		return fmt.Sprintf("Appointment Reminder: %s at %s | %s", appt.Date, appt.Time, p.Name)
	})
}

func (n *Notifier) clinicBookingCopy(ctx context.Context, appt appointments.Appointment) error {
	p, err := n.profiles.Get(ctx)
	if err != nil {
		return fmt.Errorf("notify: load clinic profile: %w", err)
	}
	if p.Email == "" {
		return nil
	}
	body := fmt.Sprintf("New appointment booked by the front desk assistant.\n\nPatient: %s\nPhone: %s\nAge: %s\nConcern: %s\nDate: %s\nTime: %s\n",
		appt.Name, appt.Phone, appt.Age, appt.Concern, appt.Date, appt.Time)
	err = n.sender.Send(ctx, EmailMessage{
		To:      p.Email,
		ToName:  p.Name,
		Subject: fmt.Sprintf("New booking: %s, %s at %s", appt.Name, appt.Date, appt.Time),
		Body:    body,
	})
	n.record("clinic_copy", err)
	return err
}

func (n *Notifier) send(
	ctx context.Context,
	kind, email string,
	appt appointments.Appointment,
	view func(*clinic.Profile) emailView,
	subject func(*clinic.Profile) string,
) error {
	if n.sender == nil {
		return nil
	}
	if email == "" {
		n.logger.Debug("notify: no email on file, skipping", "kind", kind, "appointment_id", appt.ID)
		n.metrics.ObserveEmail(kind, "skipped")
		return nil
	}

	p, err := n.profiles.Get(ctx)
	if err != nil {
		return fmt.Errorf("notify: load clinic profile: %w", err)
	}

	v := view(p)
	v.Clinic = p
	v.PatientName = appt.Name
	v.Appointment = appt

	html, err := renderHTML(v)
	if err != nil {
		return err
	}

	err = n.sender.Send(ctx, EmailMessage{
		To:      email,
		ToName:  appt.Name,
		Subject: subject(p),
		Body:    renderText(v),
		HTML:    html,
	})
	n.record(kind, err)
	if err != nil {
		return fmt.Errorf("notify: %s email: %w", kind, err)
	}
	n.logger.Info("patient email sent", "kind", kind, "appointment_id", appt.ID)
	return nil
}

func (n *Notifier) record(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	n.metrics.ObserveEmail(kind, status)
}

func (n *Notifier) lookupEmail(ctx context.Context, phone string) string {
	if n.contacts == nil || phone == "" {
		return ""
	}
	p, err := n.contacts.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, patients.ErrNotFound) {
			n.logger.Warn("notify: patient lookup failed", "error", err)
		}
		return ""
	}
	return p.Email
}

var _ appointments.ChangeHook = (*Notifier)(nil)
