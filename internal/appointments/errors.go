package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotTaken is matched by every SlotTakenError via errors.Is.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrNotFound is returned when no confirmed appointment matches a name and phone.
	ErrNotFound = errors.New("no confirmed appointment found for this name and phone number")

	// ErrInvalidRequest is returned when required fields are missing.
	ErrInvalidRequest = errors.New("invalid appointment request")

	// ErrInvalidDate is returned when a date is not an ISO-8601 calendar date.
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

	// ErrInvalidSlot is returned when a time is not one of the clinic's slots.
	ErrInvalidSlot = errors.New("time is not an offered appointment slot")
)

// SlotTakenError reports the (date, time) pair that is already confirmed-booked.
type SlotTakenError struct {
	Date string
	Time string
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot %s on %s is already booked, please choose another time", e.Time, e.Date)
}

// Is lets callers match with errors.Is(err, ErrSlotTaken).
func (e *SlotTakenError) Is(target error) bool {
	return target == ErrSlotTaken
}

// IsSlotTaken extracts the conflicting slot if err is a SlotTakenError.
func IsSlotTaken(err error) (*SlotTakenError, bool) {
	var taken *SlotTakenError
	if errors.As(err, &taken) {
		return taken, true
	}
	return nil, false
}
