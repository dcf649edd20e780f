package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/conversation"
	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/internal/webchat"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

type cannedLLM struct{}

func (cannedLLM) Complete(context.Context, conversation.LLMRequest) (conversation.LLMResponse, error) {
	return conversation.LLMResponse{Text: "How can I help?"}, nil
}

func newTestRouter(t *testing.T, checks map[string]Check) http.Handler {
	t.Helper()

	logger := logging.New("error")
	profile := clinic.Profile{Name: "Green Leaf Clinic", Phone: "123", Slots: []string{"10:00 AM", "11:00 AM"}, Timezone: "UTC"}
	profiles := clinic.NewStore(nil, profile)

	reg := prometheus.NewRegistry()
	svc := appointments.NewService(appointments.NewMemoryRepository(), logger,
		appointments.WithSlots(profile.Slots),
		appointments.WithMetrics(metrics.NewLedgerMetrics(reg)),
	)
	agent := conversation.NewAgent(cannedLLM{}, svc, conversation.NewMemorySessionStore(), profiles, logger)

	return New(&Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(svc, nil, logger),
		PatientsHandler:     patients.NewHandler(patients.NewMemoryStore(), logger),
		ClinicHandler:       clinic.NewHandler(profiles, logger),
		ConversationHandler: conversation.NewHandler(agent, logger),
		WebChatHandler:      webchat.NewHandler(agent, nil, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  []string{"https://clinic.example"},
		ReadinessChecks:     checks,
	})
}

func serve(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rr := serve(router, http.MethodGet, "/ready", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unavailable" {
		t.Errorf("expected unavailable, got %q", resp.Status)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "connection refused" {
		t.Errorf("unexpected checks: %v", resp.Checks)
	}
}

func TestRouterBookingFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	booking := map[string]string{"name": "Jane Doe", "phone": "5550001", "concern": "checkup", "date": "2030-01-15", "time": "10:00 AM"}
	if rr := serve(router, http.MethodPost, "/appointments", booking); rr.Code != http.StatusCreated {
		t.Fatalf("book: expected %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := serve(router, http.MethodPost, "/appointments", booking)
	if rr.Code != http.StatusConflict {
		t.Fatalf("double book: expected %d, got %d", http.StatusConflict, rr.Code)
	}

	rr = serve(router, http.MethodGet, "/appointments/slots?date=2030-01-15", nil)
	var slots appointments.SlotsResponse
	if err := json.NewDecoder(rr.Body).Decode(&slots); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if len(slots.AvailableSlots) != 1 || slots.AvailableSlots[0] != "11:00 AM" {
		t.Errorf("expected only 11:00 AM open, got %v", slots.AvailableSlots)
	}

	rr = serve(router, http.MethodGet, "/patients/5550001/appointments", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: expected %d, got %d", http.StatusOK, rr.Code)
	}

	rr = serve(router, http.MethodGet, "/metrics", nil)
	if !bytes.Contains(rr.Body.Bytes(), []byte("frontdesk_")) {
		t.Errorf("expected ledger metrics in /metrics output")
	}
}

func TestRouterMountsChatAndAdmin(t *testing.T) {
	router := newTestRouter(t, nil)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/chat/sessions", http.StatusCreated},
		{http.MethodGet, "/chat/widget.js", http.StatusOK},
		{http.MethodGet, "/chat/history", http.StatusBadRequest},
		{http.MethodGet, "/admin/clinic", http.StatusOK},
		{http.MethodGet, "/dashboard/today", http.StatusOK},
		{http.MethodGet, "/patients/5559999", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := serve(router, tc.method, tc.path, nil)
			if rr.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/appointments", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://clinic.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}
