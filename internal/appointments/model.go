package appointments

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is a single booking in the practitioner's schedule.
type Appointment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Age       string    `json:"age,omitempty"`
	Concern   string    `json:"concern,omitempty"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IsConfirmed reports whether the appointment still holds its slot.
func (a Appointment) IsConfirmed() bool {
	return a.Status == StatusConfirmed
}

// BookRequest carries the fields collected by the receptionist or the manual form.
type BookRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Age     string `json:"age,omitempty"`
	Concern string `json:"concern,omitempty"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	// Email is not stored on the appointment; it is handed to change hooks
	// so the patient profile and confirmation email can use it.
	Email string `json:"email,omitempty"`
}

func (r *BookRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Age = strings.TrimSpace(r.Age)
	r.Concern = strings.TrimSpace(r.Concern)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Email = strings.TrimSpace(r.Email)
}

// ValidateBookRequest checks the patient fields the ledger itself does not
// require. Booking callers run it before Service.Book; a booking without a
// name and phone could never be cancelled or rescheduled.
func ValidateBookRequest(req BookRequest) error {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(req.Concern) == "" {
		missing = append(missing, "concern")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// PatientRef identifies a patient's bookings for cancel and reschedule.
type PatientRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RescheduleRequest moves a patient's latest confirmed appointment.
type RescheduleRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

func (r *RescheduleRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.NewDate = strings.TrimSpace(r.NewDate)
	r.NewTime = strings.TrimSpace(r.NewTime)
}

// Rescheduled is the outcome of a successful reschedule.
type Rescheduled struct {
	Appointment  Appointment `json:"appointment"`
	PreviousDate string      `json:"previous_date"`
	PreviousTime string      `json:"previous_time"`
}
