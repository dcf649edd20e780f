package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository is the durable ledger of appointments for one practitioner.
// Implementations must keep at most one confirmed row per (date, time),
// including under concurrent callers.
type Repository interface {
	Book(ctx context.Context, req BookRequest, createdAt time.Time) (*Appointment, error)
	// List returns confirmed rows; an empty date lists every date.
	List(ctx context.Context, date string) ([]Appointment, error)
	BookedTimes(ctx context.Context, date string) ([]string, error)
	Cancel(ctx context.Context, ref PatientRef) (*Appointment, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*Rescheduled, error)
	History(ctx context.Context, phone string) ([]Appointment, error)
}

// MemoryRepository keeps the ledger in process memory. It is used for local
// development and tests; every operation runs under one lock.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []Appointment
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Book(ctx context.Context, req BookRequest, createdAt time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmedAtLocked(req.Date, req.Time, 0) {
		return nil, &SlotTakenError{Date: req.Date, Time: req.Time}
	}

	appt := Appointment{
		ID:        r.nextID,
		Name:      req.Name,
		Phone:     req.Phone,
		Age:       req.Age,
		Concern:   req.Concern,
		Date:      req.Date,
		Time:      req.Time,
		Status:    StatusConfirmed,
		CreatedAt: createdAt,
	}
	r.nextID++
	r.rows = append(r.rows, appt)
	return &appt, nil
}

func (r *MemoryRepository) List(ctx context.Context, date string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Appointment{}
	for _, a := range r.rows {
		if a.Status != StatusConfirmed {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		oi, oj := slotOrder(out[i].Time), slotOrder(out[j].Time)
		if oi != oj {
			return oi < oj
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var times []string
	for _, a := range r.rows {
		if a.Status == StatusConfirmed && a.Date == date {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (r *MemoryRepository) Cancel(ctx context.Context, ref PatientRef) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.latestConfirmedLocked(ref.Name, ref.Phone)
	if idx < 0 {
		return nil, ErrNotFound
	}
	r.rows[idx].Status = StatusCancelled
	appt := r.rows[idx]
	return &appt, nil
}

func (r *MemoryRepository) Reschedule(ctx context.Context, req RescheduleRequest) (*Rescheduled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.latestConfirmedLocked(req.Name, req.Phone)
	if idx < 0 {
		return nil, ErrNotFound
	}
	row := &r.rows[idx]
	if r.confirmedAtLocked(req.NewDate, req.NewTime, row.ID) {
		return nil, &SlotTakenError{Date: req.NewDate, Time: req.NewTime}
	}

	out := &Rescheduled{PreviousDate: row.Date, PreviousTime: row.Time}
	row.Date = req.NewDate
	row.Time = req.NewTime
	out.Appointment = *row
	return out, nil
}

func (r *MemoryRepository) History(ctx context.Context, phone string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Appointment{}
	for _, a := range r.rows {
		if a.Phone == phone {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		oi, oj := slotOrder(out[i].Time), slotOrder(out[j].Time)
		if oi != oj {
			return oi > oj
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// confirmedAtLocked reports whether a confirmed row other than exceptID holds the slot.
func (r *MemoryRepository) confirmedAtLocked(date, slot string, exceptID int64) bool {
	for _, a := range r.rows {
		if a.ID != exceptID && a.Status == StatusConfirmed && a.Date == date && a.Time == slot {
			return true
		}
	}
	return false
}

// latestConfirmedLocked picks the latest-dated confirmed match, highest id on ties.
func (r *MemoryRepository) latestConfirmedLocked(name, phone string) int {
	best := -1
	for i, a := range r.rows {
		if a.Status != StatusConfirmed || a.Name != name || a.Phone != phone {
			continue
		}
		if best < 0 || a.Date > r.rows[best].Date || (a.Date == r.rows[best].Date && a.ID > r.rows[best].ID) {
			best = i
		}
	}
	return best
}

var _ Repository = (*MemoryRepository)(nil)
