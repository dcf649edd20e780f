package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

type eventQuerier interface {
	QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// Handler exposes the audit trail to the admin panel.
type Handler struct {
	events eventQuerier
	logger *logging.Logger
}

// NewHandler creates an audit handler.
func NewHandler(svc *AuditService, logger *logging.Logger) *Handler {
	return newHandler(svc, logger)
}

func newHandler(events eventQuerier, logger *logging.Logger) *Handler {
	if events == nil {
		panic("compliance: audit service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{events: events, logger: logger}
}

// ListEvents handles GET /admin/audit?type=&session=&since=RFC3339&limit=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AuditFilter{
		EventType: AuditEventType(q.Get("type")),
		SessionID: q.Get("session"),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	events, err := h.events.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"events": events, "count": len(events)})
}
