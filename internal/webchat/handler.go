package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/frontdesk-ai/internal/conversation"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

const (
	maxMessageBytes = 8 << 10
	idleTimeout     = 10 * time.Minute
	writeTimeout    = 10 * time.Second
)

// Agent is the receptionist the socket talks to.
type Agent interface {
	StartSession(ctx context.Context) (*conversation.Session, error)
	Session(ctx context.Context, id string) (*conversation.Session, error)
	HandleMessage(ctx context.Context, sessionID, text string) (*conversation.Reply, error)
}

// Handler serves the browser chat over a websocket.
type Handler struct {
	agent    Agent
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives.
type OutboundMessage struct {
	Type      string                     `json:"type"` // "session", "message", "typing", "error", "pong"
	SessionID string                     `json:"session_id,omitempty"`
	Text      string                     `json:"text,omitempty"`
	Role      string                     `json:"role,omitempty"`
	Emergency bool                       `json:"emergency,omitempty"`
	Action    *conversation.ActionResult `json:"action,omitempty"`
	Messages  []HistoryMessage           `json:"messages,omitempty"`
	Timestamp string                     `json:"timestamp,omitempty"`
}

// HistoryMessage is one past turn sent when a socket (re)attaches to a session.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a web chat handler. With no allowed origins every origin
// is accepted.
func NewHandler(agent Agent, allowedOrigins []string, logger *logging.Logger) *Handler {
	if agent == nil {
		panic("webchat: agent required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:  agent,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket handles GET /chat/ws?session=. An unknown or missing
// session starts a new one.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("webchat: upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	ctx := r.Context()
	sess, err := h.attach(ctx, r.URL.Query().Get("session"))
	if err != nil {
		h.logger.Error("webchat: attach session failed", "error", err)
		_ = h.send(conn, OutboundMessage{Type: "error", Text: "Sorry, chat is unavailable right now."})
		return
	}
	if err := h.send(conn, OutboundMessage{Type: "session", SessionID: sess.ID, Messages: history(sess)}); err != nil {
		return
	}
	h.logger.Info("webchat: connection opened", "session_id", sess.ID)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("webchat: connection closed", "session_id", sess.ID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			err = h.send(conn, OutboundMessage{Type: "pong"})
		case "message":
			err = h.reply(ctx, conn, sess.ID, msg.Text)
		default:
			err = h.send(conn, OutboundMessage{Type: "error", Text: "unknown message type"})
		}
		if err != nil {
			h.logger.Debug("webchat: write failed", "session_id", sess.ID, "error", err)
			return
		}
	}
}

func (h *Handler) attach(ctx context.Context, id string) (*conversation.Session, error) {
	if id != "" {
		sess, err := h.agent.Session(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, conversation.ErrSessionNotFound) {
			return nil, err
		}
	}
	return h.agent.StartSession(ctx)
}

func (h *Handler) reply(ctx context.Context, conn *websocket.Conn, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := h.send(conn, OutboundMessage{Type: "typing"}); err != nil {
		return err
	}
	reply, err := h.agent.HandleMessage(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: message failed", "session_id", sessionID, "error", err)
		return h.send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
	}
	return h.send(conn, OutboundMessage{
		Type:      "message",
		Role:      conversation.ChatRoleAssistant,
		Text:      reply.Message,
		Emergency: reply.Emergency,
		Action:    reply.Action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) send(conn *websocket.Conn, msg OutboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

// HandleHistory handles GET /chat/history?session= for clients without a socket.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	sess, err := h.agent.Session(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"session_id": sess.ID, "messages": history(sess)})
}

// HandleWidgetJS serves the embeddable chat widget.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}

func history(sess *conversation.Session) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		if m.Role == conversation.ChatRoleSystem {
			continue
		}
		out = append(out, HistoryMessage{Role: m.Role, Text: m.Content})
	}
	return out
}
