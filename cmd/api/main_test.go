package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	appconfig "github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/events"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	m := setupMetrics()
	if m.handler == nil || m.ledger == nil || m.llm == nil || m.notifications == nil {
		t.Fatalf("expected non-nil handler and metric sets")
	}

	m.ledger.ObserveOperation("book", "ok", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "frontdesk_ledger_operations_total") {
		t.Fatalf("expected ledger counter to be exported")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestSetupStoresMemory(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{UseMemoryStore: true, DatabaseURL: "postgres://unused"}

	st := setupStores(context.Background(), cfg, logger)
	defer st.cleanup()

	if _, ok := st.ledger.(*appointments.MemoryRepository); !ok {
		t.Fatalf("expected memory repository, got %T", st.ledger)
	}
	if st.patients == nil {
		t.Fatalf("expected patient store")
	}
	if st.audit != nil {
		t.Fatalf("expected no audit service without postgres")
	}
	if len(st.checks) != 0 {
		t.Fatalf("expected no readiness checks for memory store, got %d", len(st.checks))
	}
}

func TestConnectRedis(t *testing.T) {
	logger := logging.New("error")

	if c := connectRedis(context.Background(), &appconfig.Config{}, logger); c != nil {
		t.Fatalf("expected nil client without address")
	}

	mr := miniredis.RunT(t)
	c := connectRedis(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger)
	if c == nil {
		t.Fatalf("expected client for running redis")
	}
	_ = c.Close()

	addr := mr.Addr()
	mr.Close()
	if c := connectRedis(context.Background(), &appconfig.Config{RedisAddr: addr}, logger); c != nil {
		t.Fatalf("expected nil client when redis is down")
	}
}

func TestSetupPublisher(t *testing.T) {
	logger := logging.New("error")

	if _, ok := setupPublisher(&appconfig.Config{}, logger).(*events.LogPublisher); !ok {
		t.Fatalf("expected log publisher without brokers")
	}

	pub := setupPublisher(&appconfig.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, logger)
	defer pub.Close()
	if _, ok := pub.(*events.KafkaPublisher); !ok {
		t.Fatalf("expected kafka publisher with brokers")
	}
}
