package patients

import (
	"context"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
)

// ProfileHook keeps the patient profile current as bookings come in.
type ProfileHook struct {
	store Store
}

func NewProfileHook(store Store) *ProfileHook {
	return &ProfileHook{store: store}
}

func (h *ProfileHook) Name() string { return "patient_profile" }

// AppointmentChanged upserts the profile on new bookings only.
func (h *ProfileHook) AppointmentChanged(ctx context.Context, change appointments.Change) error {
	if change.Kind != appointments.ChangeBooked {
		return nil
	}
	appt := change.Appointment
	req := UpsertRequest{
		Phone: appt.Phone,
		Name:  appt.Name,
		Age:   appt.Age,
		Email: change.Email,
	}
	if appt.Concern != "" {
		req.Concerns = []string{appt.Concern}
	}
	_, err := h.store.Upsert(ctx, req)
	return err
}

var _ appointments.ChangeHook = (*ProfileHook)(nil)
