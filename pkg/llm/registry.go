package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"anthropic":  "claude-3-5-haiku-20241022",
	"openrouter": "openai/gpt-4o-mini",
	"ollama":     "qwen2.5:7b",
}

const ollamaBaseURL = "http://localhost:11434/v1"

var registry = map[string]ProviderFactory{}

func init() {
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("openrouter", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	// Ollama serves an OpenAI-compatible API and ignores the key.
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		if cfg.BaseURL == "" {
			cfg.BaseURL = ollamaBaseURL
		}
		if cfg.APIKey == "" {
			cfg.APIKey = "ollama"
		}
		if cfg.Model == "" {
			cfg.Model = DefaultModels["ollama"]
		}
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		p.name = "ollama"
		return p, nil
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the registered provider names, sorted.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// providerEnvKeys maps provider names to their API key environment variables.
// GPT_API_KEY is the name the menu service has always deployed with.
var providerEnvKeys = map[string][]string{
	"openai":     {"GPT_API_KEY", "OPENAI_API_KEY"},
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// APIKeyFromEnv returns the first non-empty API key variable for provider.
func APIKeyFromEnv(provider string) string {
	for _, env := range providerEnvKeys[provider] {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// DetectProvider picks a provider from the API keys present in the
// environment. Priority: openai > anthropic > openrouter > ollama.
func DetectProvider() (provider string, apiKey string) {
	for _, name := range []string{"openai", "anthropic", "openrouter"} {
		if key := APIKeyFromEnv(name); key != "" {
			return name, key
		}
	}
	return "ollama", ""
}
