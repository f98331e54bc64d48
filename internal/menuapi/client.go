// Package menuapi delivers parsed menus to the campus menu service.
package menuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// ErrNotFound is returned by Lookup when the service has no menu stored.
var ErrNotFound = errors.New("menu not found")

// Config holds client settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration
}

// DefaultConfig returns the production retry policy for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		Timeout:  10 * time.Second,
		Attempts: 3,
		Delay:    2 * time.Second,
	}
}

// Client talks to one deployment of the menu service.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("menu api base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid menu api base url: %w", err)
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BaseURL returns the deployment address.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

type postBody struct {
	Price     int      `json:"price"`
	MenuNames []string `json:"menuNames"`
}

// Meal is a stored menu returned by Lookup.
type Meal struct {
	Date       string   `json:"date"`
	Restaurant string   `json:"restaurant"`
	Time       string   `json:"time"`
	Price      int      `json:"price"`
	MenuNames  []string `json:"menuNames"`
}

func query(date string, r menu.Restaurant, slot menu.TimeSlot) url.Values {
	return url.Values{
		"date":       {date},
		"restaurant": {string(r)},
		"time":       {slot.WireName()},
	}
}

// statusError marks an HTTP failure. 4xx responses other than 429 are
// permanent and are not retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("menu api returned status %d", e.code)
	}
	return fmt.Sprintf("menu api returned status %d: %s", e.code, e.body)
}

// Post stores the items of one slot. Failures are returned as
// *menu.MenuPostError.
func (c *Client) Post(ctx context.Context, date string, r menu.Restaurant, slot menu.TimeSlot, items []string, price int) error {
	body, err := json.Marshal(postBody{Price: price, MenuNames: items})
	if err != nil {
		return &menu.MenuPostError{Date: date, Restaurant: r, Slot: slot, Err: err}
	}
	target := c.cfg.BaseURL + "?" + query(date, r, slot).Encode()
	log := logger.ForMenu(r, date).With("slot", slot.String(), "api", c.cfg.BaseURL)

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return classify(resp)
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("menu post failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		perr := &menu.MenuPostError{Date: date, Restaurant: r, Slot: slot, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			perr.StatusCode = se.code
		}
		return perr
	}

	log.Info("menu posted", "items", len(items), "price", price, "attempts", attempt)
	return nil
}

// Lookup fetches the stored menu for one slot. A 404 yields ErrNotFound.
func (c *Client) Lookup(ctx context.Context, date string, r menu.Restaurant, slot menu.TimeSlot) (*Meal, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/meals?" + query(date, r, slot).Encode()

	op := func() (*Meal, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
		default:
			return nil, classify(resp)
		}

		var meal Meal
		if err := json.NewDecoder(resp.Body).Decode(&meal); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode meal: %w", err))
		}
		return &meal, nil
	}

	meal, err := backoff.RetryWithData(op, c.policy(ctx))
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s %s: %w", r, date, slot, err)
	}
	return meal, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.Delay), uint64(c.cfg.Attempts-1)),
		ctx,
	)
}

func classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
