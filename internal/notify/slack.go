// Package notify posts operator messages to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// Notifier delivers a plain text message.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Config holds webhook settings.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	IconEmoji  string
	Timeout    time.Duration
	Attempts   int
	Delay      time.Duration
}

// DefaultConfig returns the bot identity used in the operations channel.
func DefaultConfig(webhookURL string) Config {
	return Config{
		WebhookURL: webhookURL,
		Channel:    "#api-notification",
		Username:   "학식봇",
		IconEmoji:  ":ghost:",
		Timeout:    10 * time.Second,
		Attempts:   3,
		Delay:      2 * time.Second,
	}
}

// Slack sends messages to an incoming webhook.
type Slack struct {
	cfg    Config
	client *http.Client
}

// NewSlack creates a webhook notifier.
func NewSlack(cfg Config) (*Slack, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, errors.New("slack webhook url is required")
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &Slack{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type payload struct {
	Channel   string `json:"channel"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	IconEmoji string `json:"icon_emoji"`
}

// Send posts message to the webhook.
func (s *Slack) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(payload{
		Channel:   s.cfg.Channel,
		Username:  s.cfg.Username,
		Text:      message,
		IconEmoji: s.cfg.IconEmoji,
	})
	if err != nil {
		return err
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.Delay), uint64(s.cfg.Attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		logger.Error("slack notification failed", "error", err)
		return fmt.Errorf("send slack notification: %w", err)
	}
	logger.Debug("slack notification sent", "chars", len([]rune(message)))
	return nil
}

// Discard drops every message. It stands in when no webhook is configured.
type Discard struct{}

// Send implements Notifier.
func (Discard) Send(context.Context, string) error { return nil }

// MenuMessage formats a parsed menu as "도담식당(20240325)의 식단 {...}".
func MenuMessage(p *menu.ParsedMenuData) string {
	return fmt.Sprintf("%s(%s)의 식단 %s", p.Restaurant.KoreanName(), p.Date, formatSlots(p))
}

func formatSlots(p *menu.ParsedMenuData) string {
	parts := make([]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		parts = append(parts, fmt.Sprintf("%s: [%s]", s.Label, strings.Join(s.Items, ", ")))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ErrorMessage formats a failure.
func ErrorMessage(err error) string {
	return "오류 발생: " + err.Error()
}

// DayResult is one line of a weekly summary.
type DayResult struct {
	Date   string
	Parsed *menu.ParsedMenuData
	Err    error
}

// WeeklySummary formats the results of a weekly run, one line per date.
func WeeklySummary(r menu.Restaurant, days []DayResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 주간 식단 처리 결과", r.KoreanName())
	for _, d := range days {
		sb.WriteString("\n")
		switch {
		case d.Err != nil && menu.IsHoliday(d.Err):
			fmt.Fprintf(&sb, "- %s: 휴무", d.Date)
		case d.Err != nil:
			fmt.Fprintf(&sb, "- %s: %s", d.Date, ErrorMessage(d.Err))
		case d.Parsed != nil:
			fmt.Fprintf(&sb, "- %s: %s", d.Date, d.Parsed.Summary())
			if failed := failedLabels(d.Parsed); failed != "" {
				fmt.Fprintf(&sb, " (실패: %s)", failed)
			}
		default:
			fmt.Fprintf(&sb, "- %s: 결과 없음", d.Date)
		}
	}
	return sb.String()
}

func failedLabels(p *menu.ParsedMenuData) string {
	var labels []string
	for _, label := range p.AllSlots() {
		if _, failed := p.SlotErrors[label]; failed {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}
