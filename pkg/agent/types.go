package agent

import "strings"

// EmptyMessagePlaceholder stands in for message text that arrived empty,
// so history rendering and persistence never deal with blank content.
const EmptyMessagePlaceholder = "[Empty Message]"

// Message is one entry in the conversation sent to the provider. A user
// message may carry a binary part alongside its text.
type Message struct {
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID     string     `json:"tool_call_id,omitempty"`
	AttachmentData []byte     `json:"attachment_data,omitempty"`
	AttachmentMIME string     `json:"attachment_mime,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of executing one tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TokenUsage tracks token consumption for one turn.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AuthProfile holds credentials for one LLM provider account.
type AuthProfile struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"` // "anthropic" or "openai"
	APIKey        string `json:"api_key"`
	CooldownUntil *int64 `json:"cooldown_until,omitempty"`
	FailureCount  int    `json:"failure_count"`
	Priority      int    `json:"priority"`
}

// ModelConfig configures the model call.
type ModelConfig struct {
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	MaxToolTurns int     `json:"max_tool_turns,omitempty"`
	MaxRetries   int     `json:"max_retries,omitempty"`
}

// DefaultModelConfig returns the model defaults.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:        "claude-sonnet-4-20250514",
		Temperature:  0.7,
		MaxTokens:    4096,
		MaxToolTurns: 10,
		MaxRetries:   3,
	}
}

// NormalizeContent substitutes the placeholder for empty or
// whitespace-only text.
func NormalizeContent(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyMessagePlaceholder
	}
	return s
}

// IsRetryableError reports whether a provider error is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// Transient network failures.
	if strings.Contains(msg, "ECONNRESET") || strings.Contains(msg, "ETIMEDOUT") ||
		strings.Contains(msg, "connection refused") {
		return true
	}

	// Rate limits.
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return true
	}

	// Server-side errors.
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}

	return false
}
