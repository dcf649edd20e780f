package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompatibleClient speaks the OpenAI chat completions protocol. Groq and
// Ollama both expose it, so one client serves either by base URL.
type OpenAICompatibleClient struct {
	api   chatCompletionAPI
	model string
}

// NewOpenAICompatibleClient builds a client for baseURL. Ollama accepts any
// non-empty key.
func NewOpenAICompatibleClient(baseURL, apiKey, model string) (*OpenAICompatibleClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("conversation: model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return newOpenAICompatibleClient(openai.NewClientWithConfig(cfg), model), nil
}

func newOpenAICompatibleClient(api chatCompletionAPI, model string) *OpenAICompatibleClient {
	if api == nil {
		panic("conversation: chat completion client cannot be nil")
	}
	return &OpenAICompatibleClient{api: api, model: model}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	system, msgs := splitSystem(req)

	history := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if len(system) > 0 {
		history = append(history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(system, "\n\n"),
		})
	}
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		history = append(history, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	creq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  history,
		MaxTokens: int(req.MaxTokens),
		TopP:      req.TopP,
	}
	if req.Temperature >= 0 {
		creq.Temperature = req.Temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("conversation: chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}

var _ LLMClient = (*OpenAICompatibleClient)(nil)
