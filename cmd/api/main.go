package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/frontdesk-ai/cmd/mainconfig"
	"github.com/wolfman30/frontdesk-ai/internal/api/router"
	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	"github.com/wolfman30/frontdesk-ai/internal/compliance"
	appconfig "github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/conversation"
	"github.com/wolfman30/frontdesk-ai/internal/events"
	"github.com/wolfman30/frontdesk-ai/internal/notify"
	"github.com/wolfman30/frontdesk-ai/internal/patients"
	"github.com/wolfman30/frontdesk-ai/internal/reminders"
	"github.com/wolfman30/frontdesk-ai/internal/webchat"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting frontdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := setupMetrics()

	profile := clinic.FromSettings(cfg.Clinic)
	if err := profile.Validate(); err != nil {
		logger.Error("invalid clinic configuration", "error", err)
		os.Exit(1)
	}

	redisClient := connectRedis(ctx, cfg, logger)
	profiles := clinic.NewStore(redisClient, profile)

	st := setupStores(ctx, cfg, logger)
	defer st.cleanup()
	patientStore, checks := st.patients, st.checks
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	awsClients, err := mainconfig.NewAWSClients(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	sender, err := notify.NewEmailSender(cfg, awsClients.SES, logger)
	if err != nil {
		logger.Error("failed to configure email", "error", err)
		os.Exit(1)
	}
	notifier := notify.NewNotifier(sender, profiles, logger.WithComponent("notify"),
		notify.WithContacts(patientStore),
		notify.WithClinicCopy(cfg.NotifyClinicOnNew),
		notify.WithNotificationMetrics(m.notifications),
	)

	publisher := setupPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	}()

	hooks := []appointments.ChangeHook{patients.NewProfileHook(patientStore), events.NewHook(publisher)}
	if cfg.EmailEnabled {
		hooks = append(hooks, notifier)
	}
	svc := appointments.NewService(st.ledger, logger.WithComponent("ledger"),
		appointments.WithSlots(profile.Slots),
		appointments.WithMetrics(m.ledger),
		appointments.WithHooks(hooks...),
	)

	llm, err := conversation.NewLLMClientFromConfig(ctx, cfg, awsClients.Bedrock, m.llm, logger)
	if err != nil {
		logger.Error("failed to configure LLM", "error", err)
		os.Exit(1)
	}

	var sessions conversation.SessionStore = conversation.NewMemorySessionStore()
	if redisClient != nil {
		sessions = conversation.NewRedisSessionStore(redisClient)
	}
	agentOpts := []conversation.AgentOption{conversation.WithGeneration(cfg.LLMMaxTokens, cfg.LLMTemperature)}
	var auditHandler *compliance.Handler
	if st.audit != nil {
		agentOpts = append(agentOpts, conversation.WithAuditLog(st.audit))
		auditHandler = compliance.NewHandler(st.audit, logger)
	}
	agent := conversation.NewAgent(llm, svc, sessions, profiles, logger.WithComponent("agent"), agentOpts...)

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(svc, profile.Location(), logger),
		PatientsHandler:     patients.NewHandler(patientStore, logger),
		ClinicHandler:       clinic.NewHandler(profiles, logger),
		AuditHandler:        auditHandler,
		ConversationHandler: conversation.NewHandler(agent, logger),
		WebChatHandler:      webchat.NewHandler(agent, cfg.CORSAllowedOrigins, logger),
		MetricsHandler:      m.handler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRateLimit:       cfg.ChatRateLimit,
		ChatRateBurst:       cfg.ChatRateBurst,
		ReadinessChecks:     checks,
	})

	workerDone := make(chan struct{})
	if cfg.RemindersEnabled && cfg.EmailEnabled {
		worker := reminders.NewWorker(svc, notifier, patientStore, profiles, redisClient, reminders.Config{
			Interval: cfg.ReminderInterval,
			Lead:     time.Duration(cfg.ReminderLeadHours) * time.Hour,
		}, logger.WithComponent("reminders"))
		go func() {
			defer close(workerDone)
			worker.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	// Chat replies wait on the LLM, so writes get more room than reads.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	<-workerDone
	svc.Drain()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logger.Info("server stopped")
}
