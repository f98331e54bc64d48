package llm

import (
	"context"
	"time"

	"github.com/jmylchreest/campusmenu/internal/logger"
)

// Observer receives a notification after every LLM call, successful or not.
// Implementations must not block.
type Observer interface {
	OnLLMCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one completed LLM call.
type CallEvent struct {
	Provider  string
	Model     string
	Tool      string
	InputSize int
	Usage     Usage
	Error     error
	Duration  time.Duration
	StartedAt time.Time
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnLLMCall implements Observer.
func (f ObserverFunc) OnLLMCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// LogObserver logs calls at debug level and failures at warn level.
var LogObserver = ObserverFunc(func(ctx context.Context, e CallEvent) {
	if e.Error != nil {
		logger.WarnContext(ctx, "llm call failed",
			"provider", e.Provider, "model", e.Model, "tool", e.Tool,
			"duration", e.Duration, "error", e.Error)
		return
	}
	logger.DebugContext(ctx, "llm call",
		"provider", e.Provider, "model", e.Model, "tool", e.Tool,
		"input_bytes", e.InputSize,
		"input_tokens", e.Usage.InputTokens, "output_tokens", e.Usage.OutputTokens,
		"duration", e.Duration)
})

type observed struct {
	Provider
	obs Observer
}

// Observe wraps p so every Execute call is reported to obs.
func Observe(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &observed{Provider: p, obs: obs}
}

func (o *observed) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.Provider.Execute(ctx, req)

	event := CallEvent{
		Provider:  o.Provider.Name(),
		Model:     o.Provider.Model(),
		Tool:      req.ToolChoice,
		Error:     err,
		Duration:  time.Since(start),
		StartedAt: start,
	}
	for _, m := range req.Messages {
		event.InputSize += len(m.Content)
	}
	if resp != nil {
		event.Usage = resp.Usage
		if resp.Model != "" {
			event.Model = resp.Model
		}
	}
	o.obs.OnLLMCall(ctx, event)
	return resp, err
}
