package llm

import (
	"context"
	"fmt"
	"strings"
)

// Fallback tries each provider in order until one succeeds.
type Fallback struct {
	providers []Provider
}

// NewFallback creates a fallback chain. Nil providers are skipped.
func NewFallback(providers ...Provider) *Fallback {
	f := &Fallback{}
	for _, p := range providers {
		if p != nil {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

// Execute returns the first successful response. The returned error wraps
// the last provider's error, so errors.Is still sees ErrRateLimited and
// friends when every provider failed the same way.
func (f *Fallback) Execute(ctx context.Context, req Request) (*Response, error) {
	if len(f.providers) == 0 {
		return nil, ErrNoProviderAvailable
	}

	var lastErr error
	tried := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried = append(tried, p.Name())
		resp, err := p.Execute(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("all providers failed (tried: %s): %w", strings.Join(tried, ", "), lastErr)
}

// Name returns the chain name.
func (f *Fallback) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return "fallback(" + strings.Join(names, "->") + ")"
}

// Model returns the model of the first provider.
func (f *Fallback) Model() string {
	if len(f.providers) == 0 {
		return ""
	}
	return f.providers[0].Model()
}

// Len returns the number of providers in the chain.
func (f *Fallback) Len() int {
	return len(f.providers)
}
