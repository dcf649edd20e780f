package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/compliance"
	"github.com/wolfman30/frontdesk-ai/internal/conversation"
	httpmiddleware "github.com/wolfman30/frontdesk-ai/internal/http/middleware"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/internal/webchat"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	PatientsHandler     *patients.Handler
	ClinicHandler       *clinic.Handler
	AuditHandler        *compliance.Handler
	ConversationHandler *conversation.Handler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// ChatRateLimit is requests per second per IP on chat endpoints; zero disables it.
	ChatRateLimit float64
	ChatRateBurst int

	// ReadinessChecks back GET /ready, keyed by dependency name.
	ReadinessChecks map[string]Check
}

// New creates the chi router with every configured route.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", health)
	r.Get("/ready", readiness(cfg.ReadinessChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if h := cfg.AppointmentsHandler; h != nil {
		r.Mount("/appointments", h.Routes())
		r.Get("/dashboard/today", h.Today)
		r.Get("/patients/{phone}/appointments", h.History)
	}
	if h := cfg.PatientsHandler; h != nil {
		r.Get("/patients/{phone}", h.Get)
		r.Put("/patients/{phone}", h.Put)
	}
	if cfg.ClinicHandler != nil {
		r.Mount("/admin/clinic", cfg.ClinicHandler.Routes())
	}
	if cfg.AuditHandler != nil {
		r.Get("/admin/audit", cfg.AuditHandler.ListEvents)
	}

	r.Route("/chat", func(chat chi.Router) {
		if cfg.ChatRateLimit > 0 {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
		}
		if cfg.ConversationHandler != nil {
			chat.With(middleware.Compress(5)).Mount("/sessions", cfg.ConversationHandler.Routes())
		}
		if h := cfg.WebChatHandler; h != nil {
			chat.Get("/ws", h.HandleWebSocket)
			chat.Get("/history", h.HandleHistory)
			chat.Get("/widget.js", h.HandleWidgetJS)
		}
	})

	return r
}
