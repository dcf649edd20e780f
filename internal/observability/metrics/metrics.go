package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics exposes counters/histograms for appointment ledger operations.
type LedgerMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	hookFailuresTotal *prometheus.CounterVec
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome (ok, slot_taken, not_found, invalid, error)",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "ledger",
			Name:      "operation_latency_seconds",
			Help:      "Latency of ledger operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		hookFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "ledger",
			Name:      "hook_failures_total",
			Help:      "Post-change hooks (notifications, events) that returned an error",
		}, []string{"hook"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.hookFailuresTotal)
	return m
}

func (m *LedgerMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *LedgerMetrics) ObserveHookFailure(hook string) {
	if m == nil {
		return
	}
	m.hookFailuresTotal.WithLabelValues(hook).Inc()
}

// LLMMetrics tracks language model calls per provider.
type LLMMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	tokensTotal    *prometheus.CounterVec
}

func NewLLMMetrics(reg prometheus.Registerer) *LLMMetrics {
	m := &LLMMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM completions by provider and status",
		}, []string{"provider", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "llm",
			Name:      "request_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction (input, output)",
		}, []string{"provider", "direction"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.tokensTotal)
	return m
}

func (m *LLMMetrics) ObserveCompletion(provider string, err error, seconds float64, inputTokens, outputTokens int32) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(provider, status).Inc()
	m.requestLatency.WithLabelValues(provider).Observe(seconds)
	if inputTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
}

// NotificationMetrics counts patient emails by kind and status.
type NotificationMetrics struct {
	sentTotal *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Patient emails by kind (booked, cancelled, rescheduled, reminder) and status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal)
	return m
}

func (m *NotificationMetrics) ObserveEmail(kind, status string) {
	if m == nil {
		return
	}
	m.sentTotal.WithLabelValues(kind, status).Inc()
}
