package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// QuickActions maps sidebar buttons to the patient message they send.
var QuickActions = map[string]string{
	"book":     "I want to book an appointment",
	"cancel":   "I want to cancel my appointment",
	"fees":     "What are the fees and services?",
	"timings":  "What are your clinic timings?",
	"location": "Where is the clinic and how do I get there?",
}

// Handler exposes the receptionist over HTTP.
type Handler struct {
	agent  *Agent
	logger *logging.Logger
}

func NewHandler(agent *Agent, logger *logging.Logger) *Handler {
	if agent == nil {
		panic("conversation: agent required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agent: agent, logger: logger}
}

// Routes mounts the chat endpoints under /chat/sessions.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/messages", h.Message)
		r.Post("/quick/{action}", h.Quick)
	})
	return r
}

// MessageRequest is the body of POST /chat/sessions/{id}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Start handles POST /chat/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.agent.StartSession(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /chat/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.agent.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Clear handles DELETE /chat/sessions/{id}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, err := h.agent.ClearSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Message handles POST /chat/sessions/{id}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	h.reply(w, r, req.Message)
}

// Quick handles POST /chat/sessions/{id}/quick/{action}.
func (h *Handler) Quick(w http.ResponseWriter, r *http.Request) {
	text, ok := QuickActions[chi.URLParam(r, "action")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown quick action"})
		return
	}
	h.reply(w, r, text)
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request, text string) {
	reply, err := h.agent.HandleMessage(r.Context(), chi.URLParam(r, "sessionID"), text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
	default:
		h.logger.Error("chat request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
