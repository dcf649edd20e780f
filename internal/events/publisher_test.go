package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestHook_PublishesRescheduleToKafka(t *testing.T) {
	w := &fakeWriter{}
	hook := NewHook(newKafkaPublisher(w, nil))
	hook.newID = func() string { return "evt-1" }

	occurred := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	err := hook.AppointmentChanged(context.Background(), appointments.Change{
		Kind:         appointments.ChangeRescheduled,
		Appointment:  appointments.Appointment{ID: 42, Name: "A", Phone: "1", Date: "2025-06-02", Time: "3:00 PM", Status: appointments.StatusConfirmed},
		PreviousDate: "2025-06-01",
		PreviousTime: "10:00 AM",
		OccurredAt:   occurred,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "evt-1", header(msg, "event_id"))
	assert.Equal(t, TypeAppointmentRescheduled, header(msg, "event_type"))

	var evt AppointmentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	assert.Equal(t, "10:00 AM", evt.PreviousTime)
	assert.Equal(t, "3:00 PM", evt.Appointment.Time)
	assert.True(t, evt.OccurredAt.Equal(occurred))
}

func TestKafkaPublisher_InjectsTraceContext(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, nil)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := []kafka.Header{{Key: "event_id", Value: []byte("x")}}
	carrier := &headerCarrier{headers: headers}
	propagation.TraceContext{}.Inject(ctx, carrier)
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	require.NoError(t, p.Publish(ctx, AppointmentEvent{EventID: "x", Type: TypeAppointmentBooked}))
	require.Len(t, w.msgs, 1)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(w, nil)

	err := p.Publish(context.Background(), AppointmentEvent{Type: TypeAppointmentBooked})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(nil)
	require.NoError(t, NewHook(p).AppointmentChanged(context.Background(), appointments.Change{Kind: appointments.ChangeBooked}))
	require.NoError(t, p.Close())
}

func TestEventType(t *testing.T) {
	assert.Equal(t, TypeAppointmentBooked, eventType(appointments.ChangeBooked))
	assert.Equal(t, TypeAppointmentCancelled, eventType(appointments.ChangeCancelled))
}
