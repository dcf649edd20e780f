package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// FallbackLLMClient retries a failed completion on a second provider.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient returns a client that only uses primary when fallback is nil.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary llm failed, trying fallback", "error", err)

	// The fallback may use a different model family; let it pick its own model.
	req.Model = ""
	resp, fbErr := c.fallback.Complete(ctx, req)
	if fbErr != nil {
		c.logger.Error("fallback llm also failed", "primary_error", err, "fallback_error", fbErr)
		return LLMResponse{}, fmt.Errorf("conversation: fallback llm: %w", fbErr)
	}
	c.logger.Info("fallback llm succeeded")
	return resp, nil
}

var _ LLMClient = (*FallbackLLMClient)(nil)
