// Package config loads campusmenu settings from flags, a YAML file, the
// environment and .env files.
//
// Precedence follows viper: flags, then CAMPUSMENU_* variables (with the
// legacy bare names SLACK_WEBHOOK_URL, API_BASE_URL and DEV_API_BASE_URL as
// fallbacks), then .campusmenu.yaml, then defaults. .env.local and .env are
// loaded into the process environment first and never override variables
// that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/campusmenu/pkg/fetcher"
	"github.com/jmylchreest/campusmenu/pkg/menu"
	"github.com/jmylchreest/campusmenu/pkg/normalizer"
)

// EnvPrefix is the prefix of campusmenu environment variables.
const EnvPrefix = "CAMPUSMENU"

// Config is the resolved configuration of a run.
type Config struct {
	Debug    bool `mapstructure:"debug"`
	Quiet    bool `mapstructure:"quiet"`
	JSONLogs bool `mapstructure:"json_logs"`

	// Provider is empty for auto-detection from API key variables.
	Provider       string   `mapstructure:"provider" validate:"omitempty,oneof=openai anthropic openrouter ollama"`
	Fallback       []string `mapstructure:"fallback" validate:"dive,oneof=openai anthropic openrouter ollama"`
	Model          string   `mapstructure:"model"`
	APIKey         string   `mapstructure:"api_key"`
	LLMBaseURL     string   `mapstructure:"llm_base_url" validate:"omitempty,url"`
	MaxContentSize string   `mapstructure:"max_content_size"`
	MaxTokens      int      `mapstructure:"max_tokens" validate:"min=1"`
	Temperature    float64  `mapstructure:"temperature" validate:"min=0,max=2"`

	Attempts    int           `mapstructure:"attempts" validate:"min=1,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	SlotTimeout time.Duration `mapstructure:"slot_timeout" validate:"min=0"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1,max=16"`

	PortalURL    string        `mapstructure:"portal_url" validate:"required,url"`
	DormitoryURL string        `mapstructure:"dormitory_url" validate:"required,url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"min=0"`
	UserAgent    string        `mapstructure:"user_agent"`

	APIBaseURL      string `mapstructure:"api_base_url" validate:"omitempty,url"`
	DevAPIBaseURL   string `mapstructure:"dev_api_base_url" validate:"omitempty,url"`
	SlackWebhookURL string `mapstructure:"slack_webhook_url" validate:"omitempty,url"`

	// ExcludeBreakfast names restaurants whose breakfast slots are dropped.
	ExcludeBreakfast []string `mapstructure:"exclude_breakfast"`
}

var keys = []string{
	"debug", "quiet", "json_logs",
	"provider", "fallback", "model", "api_key", "llm_base_url", "max_content_size", "max_tokens", "temperature",
	"attempts", "retry_delay", "slot_timeout", "concurrency",
	"portal_url", "dormitory_url", "fetch_timeout", "user_agent",
	"exclude_breakfast",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	nc := normalizer.DefaultConfig()
	src := fetcher.DefaultSources()

	v.SetDefault("max_content_size", normalizer.DefaultMaxContentSize)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("attempts", nc.Attempts)
	v.SetDefault("retry_delay", nc.Delay)
	v.SetDefault("slot_timeout", nc.SlotTimeout)
	v.SetDefault("concurrency", nc.Concurrency)
	v.SetDefault("portal_url", src.PortalURL)
	v.SetDefault("dormitory_url", src.DormitoryURL)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("exclude_breakfast", []string{string(menu.Haksik), string(menu.Dormitory)})
}

// Setup points v at the config file and environment. An empty cfgFile
// searches for .campusmenu.yaml in the working and home directories.
func Setup(v *viper.Viper, cfgFile string) error {
	if err := LoadEnvFiles(); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".campusmenu")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key is bound.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("slack_webhook_url", EnvPrefix+"_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("api_base_url", EnvPrefix+"_API_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("dev_api_base_url", EnvPrefix+"_DEV_API_BASE_URL", "DEV_API_BASE_URL")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadEnvFiles loads .env.local then .env. Missing files are ignored.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	for i, p := range cfg.Fallback {
		cfg.Fallback[i] = strings.ToLower(strings.TrimSpace(p))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the restaurant names in
// ExcludeBreakfast.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.BreakfastExclusions(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// BreakfastExclusions resolves ExcludeBreakfast into a lookup set. The
// result is never nil, so an empty list disables exclusion.
func (c *Config) BreakfastExclusions() (map[menu.Restaurant]bool, error) {
	out := make(map[menu.Restaurant]bool, len(c.ExcludeBreakfast))
	for _, name := range c.ExcludeBreakfast {
		if strings.TrimSpace(name) == "" {
			continue
		}
		r, err := menu.ParseRestaurant(name)
		if err != nil {
			return nil, fmt.Errorf("exclude_breakfast: %w", err)
		}
		out[r] = true
	}
	return out, nil
}

// ContentSize returns MaxContentSize in bytes.
func (c *Config) ContentSize() (int, error) {
	return normalizer.ParseContentSize(c.MaxContentSize)
}

// Sources returns the configured page locations.
func (c *Config) Sources() fetcher.Sources {
	return fetcher.Sources{PortalURL: c.PortalURL, DormitoryURL: c.DormitoryURL}
}

// NormalizerOptions converts the retry settings.
func (c *Config) NormalizerOptions() []normalizer.Option {
	return []normalizer.Option{
		normalizer.WithRetry(c.Attempts, c.RetryDelay),
		normalizer.WithSlotTimeout(c.SlotTimeout),
		normalizer.WithConcurrency(c.Concurrency),
	}
}
