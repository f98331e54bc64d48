package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/campusmenu/internal/config"
	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/internal/menuapi"
	"github.com/jmylchreest/campusmenu/internal/notify"
	"github.com/jmylchreest/campusmenu/internal/output"
	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/fetcher"
	"github.com/jmylchreest/campusmenu/pkg/llm"
	"github.com/jmylchreest/campusmenu/pkg/menu"
	"github.com/jmylchreest/campusmenu/pkg/normalizer"
	"github.com/jmylchreest/campusmenu/pkg/scraper"
)

// runFlags are the delivery switches shared by scrape, week and schedule.
type runFlags struct {
	post   bool
	prod   bool
	notify bool
}

func addLLMFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("provider", "p", "", "LLM provider: openai, anthropic, openrouter, ollama (auto-detects from env vars)")
	flags.StringSlice("fallback", nil, "providers to try when the primary fails")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("llm-base-url", "", "custom LLM API base URL")
	flags.String("max-content-size", "", "max slot text sent to the model (e.g. 8KB, 0=unlimited)")
	flags.Float64("temperature", 0, "sampling temperature (0 = deterministic)")
	flags.Int("attempts", 0, "passes over the slots when the provider is rate limited or down")
	flags.Duration("retry-delay", 0, "wait between passes")
	flags.Duration("slot-timeout", 0, "time limit for one slot's extraction")
	flags.IntP("concurrency", "c", 0, "slots or dates processed at once")

	bind := map[string]string{
		"provider":         "provider",
		"fallback":         "fallback",
		"model":            "model",
		"api_key":          "api-key",
		"llm_base_url":     "llm-base-url",
		"max_content_size": "max-content-size",
		"temperature":      "temperature",
		"attempts":         "attempts",
		"retry_delay":      "retry-delay",
		"slot_timeout":     "slot-timeout",
		"concurrency":      "concurrency",
	}
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		for key, flag := range bind {
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				_ = viper.BindPFlag(key, f)
			}
		}
	}
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("post", false, "post parsed menus to the dev menu service")
	flags.Bool("prod", false, "also post to the production menu service")
	flags.Bool("notify", false, "send a Slack notification")
}

func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, xlsx")
}

func readRunFlags(cmd *cobra.Command) runFlags {
	var rf runFlags
	rf.post, _ = cmd.Flags().GetBool("post")
	rf.prod, _ = cmd.Flags().GetBool("prod")
	rf.notify, _ = cmd.Flags().GetBool("notify")
	if rf.prod {
		rf.post = true
	}
	return rf
}

// loadConfig resolves configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{Debug: cfg.Debug, Quiet: cfg.Quiet, JSON: cfg.JSONLogs})
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// buildProvider creates the configured provider chain.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	name, key := cfg.Provider, cfg.APIKey
	if name == "" {
		name, key = llm.DetectProvider()
		if cfg.APIKey != "" {
			key = cfg.APIKey
		}
	} else if key == "" {
		key = llm.APIKeyFromEnv(name)
	}

	pc := llm.DefaultProviderConfig()
	pc.APIKey = key
	pc.BaseURL = cfg.LLMBaseURL
	pc.Model = cfg.Model
	pc.AppTitle = "campusmenu"

	primary, err := llm.NewProvider(name, pc)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", name, err)
	}
	logger.Debug("llm provider ready", "provider", primary.Name(), "model", primary.Model())

	if len(cfg.Fallback) == 0 {
		return llm.Observe(primary, llm.LogObserver), nil
	}

	chain := []llm.Provider{primary}
	for _, fb := range cfg.Fallback {
		if fb == name {
			continue
		}
		fc := llm.DefaultProviderConfig()
		fc.APIKey = llm.APIKeyFromEnv(fb)
		fc.AppTitle = pc.AppTitle
		p, err := llm.NewProvider(fb, fc)
		if err != nil {
			logger.Warn("fallback provider unavailable", "provider", fb, "error", err)
			continue
		}
		chain = append(chain, p)
	}
	fb := llm.NewFallback(chain...)
	if fb.Len() == 1 {
		logger.Warn("no fallback provider could be created, using primary only", "provider", primary.Name())
		return llm.Observe(primary, llm.LogObserver), nil
	}
	logger.Debug("llm fallback chain ready", "chain", fb.Name(), "providers", fb.Len())
	return llm.Observe(fb, llm.LogObserver), nil
}

func buildNormalizer(cfg *config.Config) (*normalizer.Normalizer, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	size, err := cfg.ContentSize()
	if err != nil {
		return nil, err
	}
	extractor := normalizer.NewToolExtractor(provider,
		normalizer.WithMaxContentSize(size),
		normalizer.WithMaxTokens(cfg.MaxTokens),
		normalizer.WithTemperature(cfg.Temperature),
	)
	return normalizer.New(extractor, cfg.NormalizerOptions()...), nil
}

func buildExtractor(cfg *config.Config) (*scraper.Extractor, error) {
	exclusions, err := cfg.BreakfastExclusions()
	if err != nil {
		return nil, err
	}
	opts := scraper.DefaultOptions()
	opts.ExcludeBreakfast = exclusions
	return scraper.New(opts), nil
}

func buildPipeline(cfg *config.Config, rf runFlags) (*pipeline.Pipeline, error) {
	norm, err := buildNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	ext, err := buildExtractor(cfg)
	if err != nil {
		return nil, err
	}

	pc := pipeline.Config{
		Fetcher: fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
			Sources:   cfg.Sources(),
		}),
		Extractor:   ext,
		Normalizer:  norm,
		Production:  rf.prod,
		Concurrency: cfg.Concurrency,
	}

	if rf.post {
		if cfg.DevAPIBaseURL == "" {
			return nil, errors.New("--post needs dev_api_base_url (DEV_API_BASE_URL)")
		}
		dev, err := menuapi.New(menuapi.DefaultConfig(cfg.DevAPIBaseURL))
		if err != nil {
			return nil, err
		}
		pc.Dev = dev
	}
	if rf.prod {
		if cfg.APIBaseURL == "" {
			return nil, errors.New("--prod needs api_base_url (API_BASE_URL)")
		}
		prod, err := menuapi.New(menuapi.DefaultConfig(cfg.APIBaseURL))
		if err != nil {
			return nil, err
		}
		pc.Prod = prod
	}
	if rf.notify {
		if cfg.SlackWebhookURL == "" {
			return nil, errors.New("--notify needs slack_webhook_url (SLACK_WEBHOOK_URL)")
		}
		slack, err := notify.NewSlack(notify.DefaultConfig(cfg.SlackWebhookURL))
		if err != nil {
			return nil, err
		}
		pc.Notifier = slack
	}

	return pipeline.New(pc)
}

func parseRestaurants(names []string) ([]menu.Restaurant, error) {
	if len(names) == 0 {
		return menu.All(), nil
	}
	out := make([]menu.Restaurant, 0, len(names))
	for _, n := range names {
		r, err := menu.ParseRestaurant(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// writeRecords writes records to the --output file or stdout.
func writeRecords(cmd *cobra.Command, recs []output.Record) error {
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	} else if format == output.FormatXLSX {
		return errors.New("xlsx output needs --output")
	}

	ow, err := output.NewWriter(w, format)
	if err != nil {
		return err
	}
	if err := ow.WriteAll(recs); err != nil {
		return err
	}
	return ow.Close()
}
