package events

import (
	"time"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
)

const (
	TypeAppointmentBooked      = "appointment.booked.v1"
	TypeAppointmentCancelled   = "appointment.cancelled.v1"
	TypeAppointmentRescheduled = "appointment.rescheduled.v1"
)

// AppointmentEvent is the payload published for every committed ledger change.
type AppointmentEvent struct {
	EventID      string                   `json:"event_id"`
	Type         string                   `json:"type"`
	Appointment  appointments.Appointment `json:"appointment"`
	PreviousDate string                   `json:"previous_date,omitempty"`
	PreviousTime string                   `json:"previous_time,omitempty"`
	OccurredAt   time.Time                `json:"occurred_at"`
}

func eventType(kind appointments.ChangeKind) string {
	switch kind {
	case appointments.ChangeBooked:
		return TypeAppointmentBooked
	case appointments.ChangeCancelled:
		return TypeAppointmentCancelled
	case appointments.ChangeRescheduled:
		return TypeAppointmentRescheduled
	default:
		return "appointment." + string(kind) + ".v1"
	}
}
