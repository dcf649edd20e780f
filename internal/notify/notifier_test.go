package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func testStore() *clinic.Store {
	return clinic.NewStore(nil, clinic.Profile{
		Name:       "Wellness Clinic",
		DoctorName: "Dr. Priya Sharma",
		Address:    "45 Green Avenue",
		Phone:      "+91 98765 43210",
		Email:      "clinic@example.com",
		Slots:      []string{"10:00 AM"},
	})
}

var sampleAppt = appointments.Appointment{
	ID: 7, Name: "Asha <Rao>", Phone: "555", Concern: "PCOS diet",
	Date: "2025-06-01", Time: "10:00 AM", Status: appointments.StatusConfirmed,
}

func TestNotifier_BookedEmail(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, testStore(), nil)

	err := n.AppointmentChanged(context.Background(), appointments.Change{
		Kind: appointments.ChangeBooked, Appointment: sampleAppt, Email: "asha@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Confirmed")
	assert.Contains(t, msg.Subject, "Wellness Clinic")
	assert.Contains(t, msg.Body, "PCOS diet")
	assert.Contains(t, msg.Body, "Dr. Priya Sharma")
	assert.Contains(t, msg.HTML, "Asha &lt;Rao&gt;")
	assert.NotContains(t, msg.HTML, "<Rao>")
}

func TestNotifier_RescheduledMentionsPreviousSlot(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, testStore(), nil)

	moved := sampleAppt
	moved.Time = "2:00 PM"
	err := n.AppointmentChanged(context.Background(), appointments.Change{
		Kind: appointments.ChangeRescheduled, Appointment: moved,
		PreviousDate: "2025-06-01", PreviousTime: "10:00 AM", Email: "asha@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0].Body, "Previously : 2025-06-01 at 10:00 AM")
	assert.Contains(t, sender.msgs[0].HTML, "2:00 PM")
}

func TestNotifier_LooksUpEmailForCancel(t *testing.T) {
	sender := &recordingSender{}
	contacts := patients.NewMemoryStore()
	_, err := contacts.Upsert(context.Background(), patients.UpsertRequest{Phone: "555", Email: "asha@example.com"})
	require.NoError(t, err)

	n := NewNotifier(sender, testStore(), nil, WithContacts(contacts))
	cancelled := sampleAppt
	cancelled.Status = appointments.StatusCancelled
	require.NoError(t, n.AppointmentChanged(context.Background(), appointments.Change{Kind: appointments.ChangeCancelled, Appointment: cancelled}))

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "asha@example.com", sender.msgs[0].To)
	assert.True(t, strings.HasPrefix(sender.msgs[0].Subject, "Appointment Cancelled"))
}

func TestNotifier_SkipsWithoutEmail(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewNotificationMetrics(reg)
	sender := &recordingSender{}
	n := NewNotifier(sender, testStore(), nil, WithContacts(patients.NewMemoryStore()), WithNotificationMetrics(m))

	require.NoError(t, n.AppointmentReminder(context.Background(), sampleAppt, ""))
	assert.Empty(t, sender.msgs)

	count, err := testutil.GatherAndCount(reg, "frontdesk_notify_emails_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotifier_ClinicCopy(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, testStore(), nil, WithClinicCopy(true))

	require.NoError(t, n.AppointmentChanged(context.Background(), appointments.Change{
		Kind: appointments.ChangeBooked, Appointment: sampleAppt, Email: "asha@example.com",
	}))
	require.Len(t, sender.msgs, 2)
	assert.Equal(t, "clinic@example.com", sender.msgs[1].To)
	assert.Contains(t, sender.msgs[1].Body, "Phone: 555")
}

func TestNotifier_SenderFailureIsReturned(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	n := NewNotifier(sender, testStore(), nil)

	err := n.AppointmentBooked(context.Background(), sampleAppt, "asha@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestNewEmailSender(t *testing.T) {
	cfg := &config.Config{EmailProvider: "stub"}
	s, err := NewEmailSender(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &StubEmailSender{}, s)

	cfg = &config.Config{EmailProvider: "smtp", SMTPUsername: "desk@gmail.com", SMTPPassword: "pw"}
	s, err = NewEmailSender(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewEmailSender(&config.Config{EmailProvider: "sendgrid"}, nil, nil)
	assert.Error(t, err)

	_, err = NewEmailSender(&config.Config{EmailProvider: "ses"}, nil, nil)
	assert.Error(t, err)

	_, err = NewEmailSender(&config.Config{EmailProvider: "pigeon"}, nil, nil)
	assert.Error(t, err)
}
