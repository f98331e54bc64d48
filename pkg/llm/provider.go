// Package llm provides a small, provider-neutral interface for chat
// completions with forced tool calls, plus OpenAI, OpenRouter and Anthropic
// implementations.
package llm

import (
	"context"
	"errors"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Tool describes a function the model may call. Parameters is a JSON schema
// object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Tools       []Tool
	// ToolChoice forces the named tool to be called when set.
	ToolChoice string
}

// ToolCall is a tool invocation returned by the model. Arguments is the raw
// JSON object the model produced.
type ToolCall struct {
	Name      string
	Arguments string
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
	Model        string
	Duration     time.Duration
}

// ToolCall returns the first call of the named tool.
func (r *Response) ToolCall(name string) (ToolCall, bool) {
	for _, tc := range r.ToolCalls {
		if tc.Name == name {
			return tc, true
		}
	}
	return ToolCall{}, false
}

// Provider is the interface all LLM backends implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetries is the SDK-level retry count for a single request.
	MaxRetries int
	Timeout    time.Duration
	// HTTPReferer and AppTitle are sent to OpenRouter for attribution.
	HTTPReferer string
	AppTitle    string
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 2,
		Timeout:    60 * time.Second,
	}
}

var (
	// ErrRateLimited marks a provider rejecting calls for quota or rate reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable marks a provider-side outage (5xx).
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNoToolCall is returned when a forced tool call is missing from the response.
	ErrNoToolCall = errors.New("no tool call in response")
	// ErrNoProviderAvailable is returned by an empty fallback chain.
	ErrNoProviderAvailable = errors.New("no LLM provider available")
)

// IsTransient reports whether err signals a provider-wide failure that is
// likely to affect every call made right now.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

func classifyStatus(status int) error {
	switch {
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrUnavailable
	}
	return nil
}
