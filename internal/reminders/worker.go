// Package reminders emails patients ahead of their confirmed appointments.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

const sentTTL = 72 * time.Hour

// Ledger lists confirmed appointments for a date.
type Ledger interface {
	List(ctx context.Context, date string) ([]appointments.Appointment, error)
}

// Sender delivers one reminder.
type Sender interface {
	AppointmentReminder(ctx context.Context, appt appointments.Appointment, email string) error
}

// ContactLookup finds a patient's email by phone.
type ContactLookup interface {
	GetByPhone(ctx context.Context, phone string) (*patients.Patient, error)
}

// ProfileSource supplies the clinic timezone.
type ProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

// Config tunes the worker.
type Config struct {
	Interval time.Duration
	Lead     time.Duration
}

// Worker sends one reminder per appointment slot as it enters the lead window.
type Worker struct {
	ledger   Ledger
	sender   Sender
	contacts ContactLookup
	profiles ProfileSource
	redis    *redis.Client
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewWorker creates a reminder worker. With a nil redis client, sent markers
// are kept in memory and do not survive restarts.
func NewWorker(ledger Ledger, sender Sender, contacts ContactLookup, profiles ProfileSource, rdb *redis.Client, cfg Config, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	return &Worker{
		ledger:   ledger,
		sender:   sender,
		contacts: contacts,
		profiles: profiles,
		redis:    rdb,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sent:     make(map[string]time.Time),
	}
}

// Run processes due reminders every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.cfg.Interval.String(), "lead", w.cfg.Lead.String())
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := w.ProcessDue(ctx); err != nil {
			w.logger.Error("reminder worker: pass failed", "error", err)
		} else if n > 0 {
			w.logger.Info("reminder worker: reminders sent", "count", n)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue sends reminders for confirmed appointments starting within the
// lead window. It returns the number of reminders sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	profile, err := w.profiles.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("reminders: load clinic profile: %w", err)
	}
	loc := profile.Location()
	now := w.now().In(loc)
	until := now.Add(w.cfg.Lead)

	sent := 0
	for day := dateOnly(now); !day.After(dateOnly(until)); day = day.AddDate(0, 0, 1) {
		date := day.Format(appointments.DateLayout)
		appts, err := w.ledger.List(ctx, date)
		if err != nil {
			return sent, fmt.Errorf("reminders: list %s: %w", date, err)
		}
		for _, appt := range appts {
			start, ok := startTime(appt, loc)
			if !ok || !start.After(now) || start.After(until) {
				continue
			}
			delivered, err := w.processOne(ctx, appt)
			if err != nil {
				w.logger.Error("reminder worker: failed to send reminder", "appointment_id", appt.ID, "error", err)
				continue
			}
			if delivered {
				sent++
			}
		}
	}
	return sent, nil
}

func (w *Worker) processOne(ctx context.Context, appt appointments.Appointment) (bool, error) {
	email := w.lookupEmail(ctx, appt.Phone)
	if email == "" {
		return false, nil
	}

	key := sentKey(appt)
	claimed, err := w.claim(ctx, key)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if err := w.sender.AppointmentReminder(ctx, appt, email); err != nil {
		w.release(ctx, key)
		return false, err
	}
	return true, nil
}

// claim marks the slot as reminded. The key includes date and time so a
// rescheduled appointment is reminded again.
func (w *Worker) claim(ctx context.Context, key string) (bool, error) {
	if w.redis != nil {
		ok, err := w.redis.SetNX(ctx, key, w.now().UTC().Format(time.RFC3339), sentTTL).Result()
		if err != nil {
			return false, fmt.Errorf("reminders: claim %s: %w", key, err)
		}
		return ok, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	for k, at := range w.sent {
		if now.Sub(at) > sentTTL {
			delete(w.sent, k)
		}
	}
	if _, ok := w.sent[key]; ok {
		return false, nil
	}
	w.sent[key] = now
	return true, nil
}

func (w *Worker) release(ctx context.Context, key string) {
	if w.redis != nil {
		if err := w.redis.Del(ctx, key).Err(); err != nil {
			w.logger.Warn("reminders: release claim failed", "key", key, "error", err)
		}
		return
	}
	w.mu.Lock()
	delete(w.sent, key)
	w.mu.Unlock()
}

func (w *Worker) lookupEmail(ctx context.Context, phone string) string {
	if w.contacts == nil {
		return ""
	}
	p, err := w.contacts.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, patients.ErrNotFound) {
			w.logger.Warn("reminders: patient lookup failed", "error", err)
		}
		return ""
	}
	return p.Email
}

func sentKey(appt appointments.Appointment) string {
	return fmt.Sprintf("reminder:sent:%d:%s:%s", appt.ID, appt.Date, appt.Time)
}

func startTime(appt appointments.Appointment, loc *time.Location) (time.Time, bool) {
	day, err := time.ParseInLocation(appointments.DateLayout, appt.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	minutes, ok := appointments.SlotMinutes(appt.Time)
	if !ok {
		return time.Time{}, false
	}
	return day.Add(time.Duration(minutes) * time.Minute), true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
