// Package normalizer turns scraped slot text into clean lists of food items.
//
// Each slot of a RawMenuData is sent to an ItemExtractor on its own. A slot
// that fails is recorded in the result's SlotErrors and the remaining slots
// carry on, so one bad slot never discards the others. Only failures that
// point at the provider as a whole (rate limits, outages) abandon the
// attempt; the full multi-slot pass is then retried with a constant delay.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/llm"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// ErrNoMenuItems is recorded for a slot whose extraction returned nothing.
var ErrNoMenuItems = errors.New("no menu items found")

// ErrEmptySlot is recorded for a slot with no text to extract from.
var ErrEmptySlot = errors.New("slot text is empty")

// ItemExtractor extracts food item names from free text.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, text string) ([]string, error)
}

// Config holds normalizer settings.
type Config struct {
	// Attempts is the number of full passes over the slots.
	Attempts int
	// Delay is the fixed wait between passes.
	Delay time.Duration
	// SlotTimeout bounds a single slot's extraction. Zero means no bound.
	SlotTimeout time.Duration
	// Concurrency is the number of slots extracted at once.
	Concurrency int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Attempts:    3,
		Delay:       5 * time.Second,
		SlotTimeout: 60 * time.Second,
		Concurrency: 1,
	}
}

// Option configures a Normalizer.
type Option func(*Config)

// WithRetry sets the number of passes and the delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Config) {
		c.Attempts = attempts
		c.Delay = delay
	}
}

// WithSlotTimeout bounds each slot's extraction.
func WithSlotTimeout(d time.Duration) Option {
	return func(c *Config) { c.SlotTimeout = d }
}

// WithConcurrency extracts up to n slots at once.
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

// Normalizer converts RawMenuData into ParsedMenuData.
type Normalizer struct {
	extractor ItemExtractor
	cfg       Config
}

// New creates a normalizer.
func New(extractor ItemExtractor, opts ...Option) *Normalizer {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Normalizer{extractor: extractor, cfg: cfg}
}

// Normalize extracts items for every slot of raw.
//
// Per-slot failures never produce an error; they are recorded in the
// result. An error is returned only for invalid input, a cancelled
// context, or when every pass was abandoned because of a provider-wide
// failure.
func (n *Normalizer) Normalize(ctx context.Context, raw *menu.RawMenuData) (*menu.ParsedMenuData, error) {
	if raw == nil {
		return nil, errors.New("normalize: nil raw menu")
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	log := logger.ForMenu(raw.Restaurant, raw.Date)
	attempt := 0

	op := func() (*menu.ParsedMenuData, error) {
		attempt++
		parsed, err := n.normalizeOnce(ctx, raw)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return parsed, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(n.cfg.Delay), uint64(n.cfg.Attempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Warn("normalization pass abandoned, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	parsed, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return nil, fmt.Errorf("normalize %s(%s) after %d attempt(s): %w", raw.Restaurant, raw.Date, attempt, err)
	}

	if parsed.Success {
		log.Info("menu normalized", "slots", len(parsed.Slots))
	} else {
		log.Warn("menu partially normalized", "summary", parsed.Summary(), "failed", len(parsed.SlotErrors))
	}
	return parsed, nil
}

type slotResult struct {
	items []string
	err   error
}

// normalizeOnce runs one pass over all slots. Slot results are collected by
// index so the output order matches the input regardless of concurrency.
func (n *Normalizer) normalizeOnce(ctx context.Context, raw *menu.RawMenuData) (*menu.ParsedMenuData, error) {
	results := make([]slotResult, len(raw.Slots))

	sem := make(chan struct{}, n.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, slot := range raw.Slots {
		wg.Add(1)
		go func(i int, slot menu.RawSlot) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = slotResult{err: ctx.Err()}
				return
			}
			items, err := n.normalizeSlot(ctx, slot.Text)
			results[i] = slotResult{items: items, err: err}
		}(i, slot)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, r := range results {
		if r.err != nil && llm.IsTransient(r.err) {
			return nil, fmt.Errorf("slot %s: %w", raw.Slots[i].Label, r.err)
		}
	}

	parsed := menu.NewParsedMenuData(raw.Date, raw.Restaurant)
	for i, r := range results {
		label := raw.Slots[i].Label
		if r.err != nil {
			logger.Warn("slot normalization failed", "error", &menu.MenuParseError{
				Date: raw.Date, Restaurant: raw.Restaurant, Label: label, Err: r.err,
			})
			parsed.AddError(label, r.err.Error())
			continue
		}
		parsed.SetItems(label, r.items)
	}
	return parsed, nil
}

func (n *Normalizer) normalizeSlot(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySlot
	}

	if n.cfg.SlotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.SlotTimeout)
		defer cancel()
	}

	items, err := n.extractor.ExtractItems(ctx, text)
	if err != nil {
		return nil, err
	}
	items = CleanItems(items)
	if len(items) == 0 {
		return nil, ErrNoMenuItems
	}
	return items, nil
}

// decorationRun matches decorative glyphs directly before a Hangul syllable.
var decorationRun = regexp.MustCompile(`[*★☆※✱✲✳❋✻✼✽]+([가-힣])`)

// StripDecorations removes decorative glyph runs that directly precede a
// Hangul syllable. Glyphs before Latin letters or digits are kept.
func StripDecorations(item string) string {
	return strings.TrimSpace(decorationRun.ReplaceAllString(item, "$1"))
}

// CleanItems strips decorations, drops blank items and removes duplicates,
// keeping the first occurrence.
func CleanItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = StripDecorations(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
