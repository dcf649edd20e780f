package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/compliance"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// ErrEmptyMessage is returned for blank patient messages.
var ErrEmptyMessage = errors.New("conversation: message is empty")

// Ledger is the subset of the appointment service the receptionist drives.
type Ledger interface {
	Book(ctx context.Context, req appointments.BookRequest) (*appointments.Appointment, error)
	Cancel(ctx context.Context, ref appointments.PatientRef) (*appointments.Appointment, error)
	Reschedule(ctx context.Context, req appointments.RescheduleRequest) (*appointments.Rescheduled, error)
	OpenSlots(ctx context.Context, date string) ([]string, error)
}

// ProfileSource returns the current clinic profile.
type ProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

// AuditLog records safety escalations and ledger changes made from chat.
type AuditLog interface {
	LogEmergency(ctx context.Context, sessionID, userMessage string) error
	LogAgentAction(ctx context.Context, sessionID, phone string, details compliance.AuditDetails) error
}

// Reply is the receptionist's answer to one patient message.
type Reply struct {
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	Emergency bool          `json:"emergency,omitempty"`
	Action    *ActionResult `json:"action,omitempty"`
}

// ActionResult reports what happened when a reply carried an ACTION line.
type ActionResult struct {
	Type           ActionType                `json:"type"`
	Outcome        string                    `json:"outcome"`
	Appointment    *appointments.Appointment `json:"appointment,omitempty"`
	AvailableSlots []string                  `json:"available_slots,omitempty"`
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

// WithGeneration sets completion limits. A negative temperature keeps the
// provider default.
func WithGeneration(maxTokens int, temperature float64) AgentOption {
	return func(a *Agent) {
		a.maxTokens = int32(maxTokens)
		a.temperature = float32(temperature)
	}
}

// WithAgentClock overrides time.Now, mainly for tests.
func WithAgentClock(now func() time.Time) AgentOption {
	return func(a *Agent) { a.now = now }
}

// WithAuditLog records emergencies and ledger actions to log.
func WithAuditLog(log AuditLog) AgentOption {
	return func(a *Agent) { a.audit = log }
}

// Agent is the chat receptionist: it keeps sessions, talks to the LLM and
// turns confirmed ACTION lines into ledger operations.
type Agent struct {
	llm         LLMClient
	ledger      Ledger
	sessions    SessionStore
	profiles    ProfileSource
	logger      *logging.Logger
	audit       AuditLog
	now         func() time.Time
	newID       func() string
	maxTokens   int32
	temperature float32

	// locks serializes turns within one session so concurrent messages do
	// not overwrite each other's history.
	locks sessionLocks
}

func NewAgent(llm LLMClient, ledger Ledger, sessions SessionStore, profiles ProfileSource, logger *logging.Logger, opts ...AgentOption) *Agent {
	if llm == nil || ledger == nil || sessions == nil || profiles == nil {
		panic("conversation: agent dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Agent{
		llm:         llm,
		ledger:      ledger,
		sessions:    sessions,
		profiles:    profiles,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		maxTokens:   512,
		temperature: 0.4,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartSession creates a session seeded with the welcome message.
func (a *Agent) StartSession(ctx context.Context) (*Session, error) {
	p, err := a.profiles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: load clinic profile: %w", err)
	}
	now := a.now().UTC()
	sess := &Session{ID: a.newID(), CreatedAt: now, UpdatedAt: now}
	sess.append(ChatRoleAssistant, Welcome(p))
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	a.logger.Info("chat session started", "session_id", sess.ID)
	return sess, nil
}

// Session returns a stored session.
func (a *Agent) Session(ctx context.Context, id string) (*Session, error) {
	return a.sessions.Get(ctx, id)
}

// ClearSession resets a session's history to the welcome message, keeping its id.
func (a *Agent) ClearSession(ctx context.Context, id string) (*Session, error) {
	if _, err := a.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	unlock := a.locks.lock(id)
	defer unlock()

	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := a.profiles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: load clinic profile: %w", err)
	}
	sess.Messages = nil
	sess.UpdatedAt = a.now().UTC()
	sess.append(ChatRoleAssistant, Welcome(p))
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// HandleMessage runs one patient turn. Emergencies are answered with a fixed
// script without calling the model.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// Unknown ids are rejected before a lock entry is created for them.
	if _, err := a.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	unlock := a.locks.lock(sessionID)
	defer unlock()

	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ctx = WithSession(ctx, sess)

	p, err := a.profiles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: load clinic profile: %w", err)
	}

	sess.append(ChatRoleUser, text)
	reply := &Reply{SessionID: sess.ID}

	if DetectEmergency(text) {
		a.logger.Warn("emergency message detected", "session_id", sess.ID)
		reply.Emergency = true
		reply.Message = EmergencyScript(p)
		if a.audit != nil {
			if err := a.audit.LogEmergency(ctx, sess.ID, text); err != nil {
				a.logger.Warn("audit emergency failed", "session_id", sess.ID, "error", err)
			}
		}
	} else {
		reply.Message, reply.Action = a.respond(ctx, sess, p)
	}

	sess.append(ChatRoleAssistant, reply.Message)
	sess.UpdatedAt = a.now().UTC()
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return reply, nil
}

func (a *Agent) respond(ctx context.Context, sess *Session, p *clinic.Profile) (string, *ActionResult) {
	prompt, err := BuildSystemPrompt(p, a.now())
	if err != nil {
		a.logger.Error("system prompt failed", "error", err)
		return unavailableMessage(p), nil
	}

	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      []string{prompt},
		Messages:    sess.Messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		a.logger.Error("llm completion failed", "session_id", sess.ID, "error", err)
		return unavailableMessage(p), nil
	}

	visible, action, err := ExtractAction(resp.Text)
	if err != nil {
		a.logger.Warn("ignoring malformed action", "session_id", sess.ID, "error", err)
	}
	if action == nil {
		if visible == "" {
			return unavailableMessage(p), nil
		}
		return visible, nil
	}

	result, outcome := a.execute(ctx, *action, p)
	a.logger.Info("chat action executed", "session_id", sess.ID, "type", string(action.Type), "outcome", result.Outcome)
	a.auditAction(ctx, sess.ID, *action, result)
	if visible == "" {
		return outcome, result
	}
	return visible + "\n\n" + outcome, result
}

// execute runs an action against the ledger and returns the deterministic
// message that replaces the ACTION line.
func (a *Agent) execute(ctx context.Context, act Action, p *clinic.Profile) (*ActionResult, string) {
	result := &ActionResult{Type: act.Type}
	var (
		msg string
		err error
	)

	switch act.Type {
	case ActionSlots:
		var open []string
		open, err = a.ledger.OpenSlots(ctx, act.Date)
		if err == nil {
			result.AvailableSlots = open
			msg = slotsMessage(act.Date, open)
		}
	case ActionBook:
		req := appointments.BookRequest{
			Name:    act.Name,
			Phone:   act.Phone,
			Age:     act.Age,
			Concern: act.Concern,
			Email:   act.Email,
			Date:    act.Date,
			Time:    act.Time,
		}
		var appt *appointments.Appointment
		if err = appointments.ValidateBookRequest(req); err == nil {
			appt, err = a.ledger.Book(ctx, req)
		}
		if err == nil {
			result.Appointment = appt
			msg = bookedMessage(appt, p, act.Email != "")
		}
	case ActionCancel:
		var appt *appointments.Appointment
		appt, err = a.ledger.Cancel(ctx, appointments.PatientRef{Name: act.Name, Phone: act.Phone})
		if err == nil {
			result.Appointment = appt
			msg = fmt.Sprintf("Your appointment on %s at %s has been cancelled. We hope to see you soon!", appt.Date, appt.Time)
		}
	case ActionReschedule:
		var moved *appointments.Rescheduled
		moved, err = a.ledger.Reschedule(ctx, appointments.RescheduleRequest{
			Name:    act.Name,
			Phone:   act.Phone,
			NewDate: act.NewDate,
			NewTime: act.NewTime,
		})
		if err == nil {
			result.Appointment = &moved.Appointment
			msg = fmt.Sprintf("Done! Your appointment has moved from %s at %s to %s at %s.",
				moved.PreviousDate, moved.PreviousTime, moved.Appointment.Date, moved.Appointment.Time)
		}
	}

	result.Outcome = appointments.Outcome(err)
	if err != nil {
		msg = a.failureMessage(ctx, act, err, p, result)
	}
	return result, msg
}

func (a *Agent) failureMessage(ctx context.Context, act Action, err error, p *clinic.Profile, result *ActionResult) string {
	if taken, ok := appointments.IsSlotTaken(err); ok {
		open, slotErr := a.ledger.OpenSlots(ctx, taken.Date)
		if slotErr != nil {
			a.logger.Warn("open slots lookup failed", "error", slotErr)
		}
		result.AvailableSlots = open
		if len(open) == 0 {
			return fmt.Sprintf("Sorry, %s on %s is already booked and there are no other openings that day. Would another date work?", taken.Time, taken.Date)
		}
		return fmt.Sprintf("Sorry, %s on %s is already booked. Open slots that day: %s. Which would you like?",
			taken.Time, taken.Date, strings.Join(open, ", "))
	}

	switch {
	case errors.Is(err, appointments.ErrNotFound):
		return "I couldn't find a confirmed appointment for that name and phone number. Could you double-check the details?"
	case errors.Is(err, appointments.ErrInvalidDate):
		return "I couldn't read that date. Could you share it again, for example " + a.now().In(p.Location()).AddDate(0, 0, 1).Format(time.DateOnly) + "?"
	case errors.Is(err, appointments.ErrInvalidSlot):
		return fmt.Sprintf("That time isn't one of our appointment slots. Our slots are: %s.", strings.Join(p.Slots, ", "))
	case errors.Is(err, appointments.ErrInvalidRequest):
		if act.Type == ActionBook || act.Type == ActionReschedule {
			if act.Type == ActionBook {
				return "I still need your name, phone number, reason for the visit, date and time to book that."
			}
			return "I still need your name, phone number, date and time to do that."
		}
		return "I still need your full name and phone number to do that."
	default:
		a.logger.Error("chat action failed", "type", string(act.Type), "error", err)
		return unavailableMessage(p)
	}
}

func (a *Agent) auditAction(ctx context.Context, sessionID string, act Action, result *ActionResult) {
	if a.audit == nil || act.Type == ActionSlots {
		return
	}
	details := compliance.AuditDetails{Action: string(act.Type), Outcome: result.Outcome}
	if appt := result.Appointment; appt != nil {
		details.AppointmentID = appt.ID
		details.Date = appt.Date
		details.Time = appt.Time
	}
	if err := a.audit.LogAgentAction(ctx, sessionID, act.Phone, details); err != nil {
		a.logger.Warn("audit action failed", "session_id", sessionID, "error", err)
	}
}

// sessionLocks hands out one mutex per session id. Entries are reference
// counted and removed when the last holder or waiter releases them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*sessionLock)
	}
	e, ok := l.entries[id]
	if !ok {
		e = &sessionLock{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func slotsMessage(date string, open []string) string {
	if len(open) == 0 {
		return fmt.Sprintf("Sorry, %s is fully booked. Would another date work for you?", date)
	}
	return fmt.Sprintf("Open slots on %s: %s. Which time works best for you?", date, strings.Join(open, ", "))
}

func bookedMessage(appt *appointments.Appointment, p *clinic.Profile, emailed bool) string {
	var b strings.Builder
	b.WriteString("Your appointment is confirmed!\n")
	fmt.Fprintf(&b, "Booking ID: #%d\n", appt.ID)
	fmt.Fprintf(&b, "Name: %s\n", appt.Name)
	fmt.Fprintf(&b, "Date: %s\n", appt.Date)
	fmt.Fprintf(&b, "Time: %s\n", appt.Time)
	fmt.Fprintf(&b, "Doctor: %s\n", p.DoctorName)
	fmt.Fprintf(&b, "Location: %s", p.Address)
	if emailed {
		b.WriteString("\nA confirmation email is on its way.")
	}
	return b.String()
}

func unavailableMessage(p *clinic.Profile) string {
	return fmt.Sprintf("Sorry, I'm having trouble right now. Please try again in a moment or call us at %s.", p.Phone)
}
