package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/observability/metrics"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// NewLLMClientFromConfig builds the configured provider, wrapped with the
// fallback provider when one is set. The provider is chosen once; an unknown
// name or missing credentials fail startup.
func NewLLMClientFromConfig(ctx context.Context, cfg *config.Config, bedrock *bedrockruntime.Client, m *metrics.LLMMetrics, logger *logging.Logger) (LLMClient, error) {
	primary, err := newProviderClient(ctx, cfg.LLMProvider, cfg, bedrock, m)
	if err != nil {
		return nil, err
	}
	if cfg.LLMFallbackProvider == "" || cfg.LLMFallbackProvider == cfg.LLMProvider {
		return primary, nil
	}
	fallback, err := newProviderClient(ctx, cfg.LLMFallbackProvider, cfg, bedrock, m)
	if err != nil {
		return nil, fmt.Errorf("conversation: fallback provider: %w", err)
	}
	return NewFallbackLLMClient(primary, fallback, logger), nil
}

func newProviderClient(ctx context.Context, provider string, cfg *config.Config, bedrock *bedrockruntime.Client, m *metrics.LLMMetrics) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)
	switch provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("conversation: GROQ_API_KEY is required for groq")
		}
		client, err = NewOpenAICompatibleClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)
	case "ollama":
		client, err = NewOpenAICompatibleClient(cfg.OllamaBaseURL, "ollama", cfg.OllamaModel)
	case "gemini":
		client, err = NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "bedrock":
		if bedrock == nil {
			return nil, fmt.Errorf("conversation: AWS configuration is required for bedrock")
		}
		if cfg.BedrockModelID == "" {
			return nil, fmt.Errorf("conversation: BEDROCK_MODEL_ID is required for bedrock")
		}
		client = NewBedrockLLMClient(bedrock, cfg.BedrockModelID)
	default:
		return nil, fmt.Errorf("conversation: unknown llm provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(client, provider, m), nil
}

// Instrument records latency, token usage and a span for every completion.
func Instrument(client LLMClient, provider string, m *metrics.LLMMetrics) LLMClient {
	return &instrumentedClient{
		next:     client,
		provider: provider,
		metrics:  m,
		tracer:   otel.Tracer("frontdesk.internal.conversation.llm"),
	}
}

type instrumentedClient struct {
	next     LLMClient
	provider string
	metrics  *metrics.LLMMetrics
	tracer   trace.Tracer
}

func (c *instrumentedClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", c.provider),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	c.metrics.ObserveCompletion(c.provider, err, time.Since(start).Seconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return resp, err
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", int(resp.Usage.InputTokens)),
		attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
	)
	return resp, nil
}
