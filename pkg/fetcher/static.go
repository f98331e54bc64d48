package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	Sources   Sources
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		Sources:   DefaultSources(),
	}
}

// Mobile user agent; the portal serves its list layout to phones.
const defaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

// StaticFetcher fetches menu pages with Colly.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	def := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Sources.PortalURL == "" {
		cfg.Sources.PortalURL = def.Sources.PortalURL
	}
	if cfg.Sources.DormitoryURL == "" {
		cfg.Sources.DormitoryURL = def.Sources.DormitoryURL
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves the menu page of restaurant r for date.
func (f *StaticFetcher) Fetch(ctx context.Context, r menu.Restaurant, date string) (*Page, error) {
	target, err := f.config.Sources.URL(r, date)
	if err != nil {
		return nil, err
	}
	return f.FetchURL(ctx, target)
}

// FetchURL retrieves an arbitrary page.
func (f *StaticFetcher) FetchURL(ctx context.Context, target string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debug("static fetch starting", "url", target)

	page := &Page{URL: target, FetchedAt: time.Now()}

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.DetectCharset = true
	c.SetRequestTimeout(f.config.Timeout)

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.ContentType = r.Headers.Get("Content-Type")
		page.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", page.ContentType,
			"size", humanize.Bytes(uint64(len(r.Body))))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			page.StatusCode = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s: %w", target, err)
	})

	if err := c.Visit(target); err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("failed to visit %s: %w", target, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return page, nil
}
