package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// Publisher emits appointment events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt AppointmentEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by appointment id, so every
// change to an appointment lands on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *logging.Logger
}

// NewKafkaPublisher creates a publisher for brokers/topic.
func NewKafkaPublisher(brokers []string, topic string, logger *logging.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *logging.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt AppointmentEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.Appointment.ID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.EventID)},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write %s: %w", evt.Type, err)
	}
	p.logger.Debug("event published", "event_type", evt.Type, "appointment_id", evt.Appointment.ID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, evt AppointmentEvent) error {
	p.logger.Info("appointment event",
		"event_id", evt.EventID,
		"event_type", evt.Type,
		"appointment_id", evt.Appointment.ID,
		"date", evt.Appointment.Date,
		"time", evt.Appointment.Time,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Hook publishes every ledger change.
type Hook struct {
	publisher Publisher
	newID     func() string
}

func NewHook(p Publisher) *Hook {
	return &Hook{publisher: p, newID: func() string { return uuid.NewString() }}
}

func (h *Hook) Name() string { return "events" }

func (h *Hook) AppointmentChanged(ctx context.Context, change appointments.Change) error {
	return h.publisher.Publish(ctx, AppointmentEvent{
		EventID:      h.newID(),
		Type:         eventType(change.Kind),
		Appointment:  change.Appointment,
		PreviousDate: change.PreviousDate,
		PreviousTime: change.PreviousTime,
		OccurredAt:   change.OccurredAt,
	})
}

// injectTraceHeaders appends W3C trace context so consumers can continue the span.
func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

var (
	_ Publisher                  = (*KafkaPublisher)(nil)
	_ Publisher                  = (*LogPublisher)(nil)
	_ appointments.ChangeHook    = (*Hook)(nil)
	_ propagation.TextMapCarrier = (*headerCarrier)(nil)
)
