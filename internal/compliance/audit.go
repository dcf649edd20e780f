// Package compliance keeps a PII-scrubbed audit trail of safety escalations
// and ledger changes made by the chat receptionist.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType names an audited event.
type AuditEventType string

const (
	// EventEmergencyEscalated is logged when a patient message triggers the emergency script.
	EventEmergencyEscalated AuditEventType = "safety.emergency_escalated"
	// EventAgentAction is logged when the receptionist books, cancels or reschedules.
	EventAgentAction AuditEventType = "ledger.agent_action"
)

const defaultQueryLimit = 100

// AuditEvent is an immutable audit record. UserMessage is stored scrubbed and
// the patient phone only as a hash.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	SessionID   string          `json:"session_id,omitempty"`
	PhoneHash   string          `json:"phone_hash,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditDetails holds event-specific fields.
type AuditDetails struct {
	// For agent actions
	Action        string `json:"action,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	AppointmentID int64  `json:"appointment_id,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

// AuditFilter narrows QueryEvents.
type AuditFilter struct {
	EventType AuditEventType
	SessionID string
	Since     time.Time
	Limit     int
}

// AuditService writes and reads the compliance_audit_events table.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates an audit service on db.
func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db required")
	}
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records an audit event, scrubbing the user message first.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	event.UserMessage = ScrubPII(event.UserMessage)

	const query = `
		INSERT INTO compliance_audit_events (
			id, event_type, session_id, phone_hash, user_message, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.EventType),
		nullString(event.SessionID),
		nullString(event.PhoneHash),
		nullString(event.UserMessage),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: log audit event: %w", err)
	}
	return nil
}

// LogEmergency records an emergency escalation.
func (s *AuditService) LogEmergency(ctx context.Context, sessionID, userMessage string) error {
	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventEmergencyEscalated,
		SessionID:   sessionID,
		UserMessage: userMessage,
	})
}

// LogAgentAction records a ledger operation the receptionist attempted.
func (s *AuditService) LogAgentAction(ctx context.Context, sessionID, phone string, details AuditDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: marshal details: %w", err)
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventAgentAction,
		SessionID: sessionID,
		PhoneHash: HashPhone(phone),
		Details:   raw,
	})
}

// QueryEvents returns matching events, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, session_id, phone_hash, user_message, details, created_at
		FROM compliance_audit_events
		WHERE 1 = 1
	`
	var args []any
	if filter.EventType != "" {
		args = append(args, string(filter.EventType))
		query += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: query audit events: %w", err)
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var (
			e                     AuditEvent
			eventType             string
			sessionID, phone, msg sql.NullString
			details               []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &sessionID, &phone, &msg, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: scan audit event: %w", err)
		}
		e.EventType = AuditEventType(eventType)
		e.SessionID = sessionID.String
		e.PhoneHash = phone.String
		e.UserMessage = msg.String
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
