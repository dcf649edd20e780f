package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk-ai/internal/api/router"
	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/compliance"
	appconfig "github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/events"
	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// appMetrics groups the registry and every metric set the server exports.
type appMetrics struct {
	registry      *prometheus.Registry
	handler       http.Handler
	ledger        *metrics.LedgerMetrics
	llm           *metrics.LLMMetrics
	notifications *metrics.NotificationMetrics
}

func setupMetrics() *appMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &appMetrics{
		registry:      reg,
		handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ledger:        metrics.NewLedgerMetrics(reg),
		llm:           metrics.NewLLMMetrics(reg),
		notifications: metrics.NewNotificationMetrics(reg),
	}
}

// connectPostgresPool returns nil when url is empty or the database is unreachable.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// openPatientDB opens the database/sql handle used by the patient store.
func openPatientDB(url string, logger *logging.Logger) *sql.DB {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		logger.Error("failed to open patient database", "error", err)
		return nil
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db
}

// connectRedis returns nil when no address is configured or the server does
// not answer; callers fall back to in-process state.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory state", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// stores are the persistence backends chosen at startup.
type stores struct {
	ledger   appointments.Repository
	patients patients.Store
	// audit is nil without Postgres.
	audit   *compliance.AuditService
	checks  map[string]router.Check
	cleanup func()
}

func memoryStores() stores {
	return stores{
		ledger:   appointments.NewMemoryRepository(),
		patients: patients.NewMemoryStore(),
		checks:   map[string]router.Check{},
		cleanup:  func() {},
	}
}

// setupStores picks Postgres when configured and reachable, else memory.
func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) stores {
	if cfg.UseMemoryStore || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("using in-memory ledger; appointments are lost on restart")
		return memoryStores()
	}

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	db := openPatientDB(cfg.DatabaseURL, logger)
	if pool == nil || db == nil {
		logger.Warn("postgres unavailable, using in-memory ledger")
		if pool != nil {
			pool.Close()
		}
		if db != nil {
			_ = db.Close()
		}
		return memoryStores()
	}

	return stores{
		ledger:   appointments.NewPostgresRepository(pool),
		patients: patients.NewSQLStore(db),
		audit:    compliance.NewAuditService(db),
		checks: map[string]router.Check{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		},
		cleanup: func() {
			pool.Close()
			_ = db.Close()
		},
	}
}

// setupPublisher emits ledger events to Kafka when brokers are configured.
func setupPublisher(cfg *appconfig.Config, logger *logging.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger)
	}
	logger.Info("publishing appointment events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}
