package conversation

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a chat session. System turns are folded into the
// provider's system instruction.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is provider-neutral. A negative Temperature leaves the
// provider default in place.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient completes a chat. Implementations are safe for concurrent use.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// splitSystem pulls system turns out of a message list so providers that take
// a separate system instruction can send them there.
func splitSystem(req LLMRequest) ([]string, []ChatMessage) {
	system := make([]string, 0, len(req.System)+1)
	for _, s := range req.System {
		if s != "" {
			system = append(system, s)
		}
	}
	msgs := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == ChatRoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		msgs = append(msgs, m)
	}
	return system, msgs
}

// dropLeadingAssistant removes assistant turns before the first user turn.
// Gemini and Bedrock reject histories that open with the model speaking.
func dropLeadingAssistant(msgs []ChatMessage) []ChatMessage {
	for i, m := range msgs {
		if m.Role == ChatRoleUser {
			return msgs[i:]
		}
	}
	return nil
}
