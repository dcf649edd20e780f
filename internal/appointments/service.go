package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

var ledgerTracer = otel.Tracer("frontdesk.internal.appointments")

const hookTimeout = 30 * time.Second

// ChangeKind names a successful ledger mutation.
type ChangeKind string

const (
	ChangeBooked      ChangeKind = "booked"
	ChangeCancelled   ChangeKind = "cancelled"
	ChangeRescheduled ChangeKind = "rescheduled"
)

// Change describes a committed mutation handed to hooks.
type Change struct {
	Kind         ChangeKind
	Appointment  Appointment
	PreviousDate string
	PreviousTime string
	// Email is only set when the booking request carried one.
	Email      string
	OccurredAt time.Time
}

// ChangeHook reacts to committed ledger changes. Hook errors are logged and
// counted; they never undo the change.
type ChangeHook interface {
	Name() string
	AppointmentChanged(ctx context.Context, change Change) error
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSlots restricts bookable times to the clinic's canonical slot list.
func WithSlots(slots []string) ServiceOption {
	return func(s *Service) { s.slots = append([]string(nil), slots...) }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.LedgerMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithHooks registers change hooks run after each successful mutation.
func WithHooks(hooks ...ChangeHook) ServiceOption {
	return func(s *Service) { s.hooks = append(s.hooks, hooks...) }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// Service is the entry point to the appointment ledger for the chat agent,
// the HTTP API and the reminder worker.
type Service struct {
	repo    Repository
	slots   []string
	logger  *logging.Logger
	metrics *metrics.LedgerMetrics
	hooks   []ChangeHook
	now     func() time.Time

	inflight sync.WaitGroup
}

// NewService constructs a ledger service.
func NewService(repo Repository, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slots returns the canonical slot list, if one was configured.
func (s *Service) Slots() []string {
	return append([]string(nil), s.slots...)
}

// Book reserves a slot. A taken slot yields a *SlotTakenError.
func (s *Service) Book(ctx context.Context, req BookRequest) (appt *Appointment, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.book")
	defer span.End()
	defer s.observe(span, "book", time.Now(), &err)

	req.normalize()
	span.SetAttributes(
		attribute.String("frontdesk.date", req.Date),
		attribute.String("frontdesk.time", req.Time),
	)
	if err = s.validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}

	appt, err = s.repo.Book(ctx, req, s.now())
	if err != nil {
		if taken, ok := IsSlotTaken(err); ok {
			s.logger.Info("slot already booked", "date", taken.Date, "time", taken.Time)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("frontdesk.appointment_id", appt.ID))
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "date", appt.Date, "time", appt.Time)
	s.dispatch(ctx, Change{Kind: ChangeBooked, Appointment: *appt, Email: req.Email})
	return appt, nil
}

// List returns confirmed appointments for date, or for every date when date is empty.
func (s *Service) List(ctx context.Context, date string) (out []Appointment, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.list")
	defer span.End()
	defer s.observe(span, "list", time.Now(), &err)

	if date != "" {
		if err = ValidateDate(date); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, date)
}

// AvailableSlots returns allSlots minus the times confirmed-booked on date.
func (s *Service) AvailableSlots(ctx context.Context, date string, allSlots []string) (out []string, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.available_slots")
	defer span.End()
	defer s.observe(span, "available_slots", time.Now(), &err)

	if err = ValidateDate(date); err != nil {
		return nil, err
	}
	booked, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	return AvailableSlots(allSlots, booked), nil
}

// OpenSlots is AvailableSlots over the configured canonical list.
func (s *Service) OpenSlots(ctx context.Context, date string) ([]string, error) {
	return s.AvailableSlots(ctx, date, s.slots)
}

// Cancel cancels the patient's latest confirmed appointment.
func (s *Service) Cancel(ctx context.Context, ref PatientRef) (appt *Appointment, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	defer s.observe(span, "cancel", time.Now(), &err)

	ref.Name = strings.TrimSpace(ref.Name)
	ref.Phone = strings.TrimSpace(ref.Phone)
	if ref.Name == "" || ref.Phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrInvalidRequest)
	}

	appt, err = s.repo.Cancel(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "date", appt.Date, "time", appt.Time)
	s.dispatch(ctx, Change{Kind: ChangeCancelled, Appointment: *appt})
	return appt, nil
}

// Reschedule moves the patient's latest confirmed appointment to a new slot.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (out *Rescheduled, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	defer s.observe(span, "reschedule", time.Now(), &err)

	req.normalize()
	if req.Name == "" || req.Phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrInvalidRequest)
	}
	if err = s.validateSlot(req.NewDate, req.NewTime); err != nil {
		return nil, err
	}

	out, err = s.repo.Reschedule(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled",
		"appointment_id", out.Appointment.ID,
		"from_date", out.PreviousDate,
		"from_time", out.PreviousTime,
		"date", out.Appointment.Date,
		"time", out.Appointment.Time,
	)
	s.dispatch(ctx, Change{
		Kind:         ChangeRescheduled,
		Appointment:  out.Appointment,
		PreviousDate: out.PreviousDate,
		PreviousTime: out.PreviousTime,
	})
	return out, nil
}

// History returns every appointment ever made for phone, newest date first.
func (s *Service) History(ctx context.Context, phone string) (out []Appointment, err error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.history")
	defer span.End()
	defer s.observe(span, "history", time.Now(), &err)

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	}
	return s.repo.History(ctx, phone)
}

// Drain blocks until every dispatched hook has returned.
func (s *Service) Drain() {
	s.inflight.Wait()
}

func (s *Service) validateSlot(date, slot string) error {
	if date == "" || slot == "" {
		return fmt.Errorf("%w: date and time are required", ErrInvalidRequest)
	}
	if err := ValidateDate(date); err != nil {
		return err
	}
	if len(s.slots) > 0 && !containsSlot(s.slots, slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// dispatch runs hooks in the background on a context detached from the
// request so a finished HTTP call does not cancel an email mid-send.
func (s *Service) dispatch(ctx context.Context, change Change) {
	if len(s.hooks) == 0 {
		return
	}
	change.OccurredAt = s.now()
	base := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, hook := range s.hooks {
			hctx, cancel := context.WithTimeout(base, hookTimeout)
			err := hook.AppointmentChanged(hctx, change)
			cancel()
			if err != nil {
				s.metrics.ObserveHookFailure(hook.Name())
				s.logger.Error("appointment hook failed",
					"hook", hook.Name(),
					"kind", string(change.Kind),
					"appointment_id", change.Appointment.ID,
					"error", err,
				)
			}
		}
	}()
}

func (s *Service) observe(span trace.Span, op string, start time.Time, errp *error) {
	err := *errp
	outcome := Outcome(err)
	s.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
	if err != nil && outcome == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("ledger operation failed", "operation", op, "error", err)
	}
}

// Outcome classifies an operation error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidSlot):
		return "invalid"
	default:
		return "error"
	}
}
