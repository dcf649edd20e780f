package appointments

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for appointment dates.
const DateLayout = "2006-01-02"

// unorderedSlot sorts labels that are not clock times after every real slot.
const unorderedSlot = 24 * 60

var slotLayouts = []string{"3:04 PM", "3:04PM", "03:04 PM", "15:04"}

// ValidateDate checks that date is a real YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// SlotMinutes converts a slot label such as "2:00 PM" to minutes after midnight.
func SlotMinutes(label string) (int, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

func slotOrder(label string) int {
	if m, ok := SlotMinutes(label); ok {
		return m
	}
	return unorderedSlot
}

// AvailableSlots returns the entries of allSlots that are not in booked,
// preserving the order of allSlots.
func AvailableSlots(allSlots, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	free := make([]string, 0, len(allSlots))
	for _, s := range allSlots {
		if _, ok := taken[s]; ok {
			continue
		}
		free = append(free, s)
	}
	return free
}

// ValidateSlotList checks a canonical slot list: every label must be a clock
// time and no label may repeat.
func ValidateSlotList(slots []string) error {
	if len(slots) == 0 {
		return fmt.Errorf("%w: at least one slot is required", ErrInvalidSlot)
	}
	seen := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if _, ok := SlotMinutes(s); !ok {
			return fmt.Errorf("%w: %q is not a clock time", ErrInvalidSlot, s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %q listed twice", ErrInvalidSlot, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func containsSlot(slots []string, label string) bool {
	for _, s := range slots {
		if s == label {
			return true
		}
	}
	return false
}
