// Package pipeline runs the fetch, extract, normalize and deliver steps for
// one restaurant and one or more dates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/internal/notify"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/fetcher"
	"github.com/jmylchreest/campusmenu/pkg/menu"
	"github.com/jmylchreest/campusmenu/pkg/scraper"
)

// Normalizer converts raw slot text into item lists.
type Normalizer interface {
	Normalize(ctx context.Context, raw *menu.RawMenuData) (*menu.ParsedMenuData, error)
}

// Poster stores one slot's items in a menu service deployment.
type Poster interface {
	Post(ctx context.Context, date string, r menu.Restaurant, slot menu.TimeSlot, items []string, price int) error
}

// Config wires the collaborators of a Pipeline.
type Config struct {
	Fetcher    fetcher.Fetcher
	Extractor  *scraper.Extractor
	Normalizer Normalizer

	// Dev receives every successful slot when set. Prod receives them as
	// well when Production is true.
	Dev        Poster
	Prod       Poster
	Production bool

	Notifier notify.Notifier

	// Concurrency bounds the number of dates processed at once.
	Concurrency int
}

// Pipeline processes menus end to end.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline. Fetcher, Extractor and Normalizer are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Fetcher == nil || cfg.Normalizer == nil {
		return nil, errors.New("pipeline: fetcher and normalizer are required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = scraper.New(scraper.DefaultOptions())
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{cfg: cfg}, nil
}

func (p *Pipeline) posters() []Poster {
	var out []Poster
	if p.cfg.Dev != nil {
		out = append(out, p.cfg.Dev)
	}
	if p.cfg.Production && p.cfg.Prod != nil {
		out = append(out, p.cfg.Prod)
	}
	return out
}

// ProcessDate runs the whole pipeline for restaurant r on date.
func (p *Pipeline) ProcessDate(ctx context.Context, r menu.Restaurant, date string) *Outcome {
	out := &Outcome{Date: date, Restaurant: r}
	log := logger.ForMenu(r, date)
	log.Info("processing menu", "production", p.cfg.Production)

	raw, err := p.extract(ctx, r, date)
	if err != nil {
		out.Err = err
		if menu.IsHoliday(err) {
			log.Info("restaurant closed", "reason", err)
		} else {
			log.Error("menu extraction failed", "error", err)
		}
		return out
	}

	p.normalizeAndDeliver(ctx, raw, out)
	return out
}

func (p *Pipeline) extract(ctx context.Context, r menu.Restaurant, date string) (*menu.RawMenuData, error) {
	page, err := p.cfg.Fetcher.Fetch(ctx, r, date)
	if err != nil {
		return nil, &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "page fetch failed", Err: err}
	}
	doc, err := scraper.Parse(page.HTML)
	if err != nil {
		return nil, &menu.MenuFetchError{Date: date, Restaurant: r, Err: err}
	}
	return p.cfg.Extractor.ExtractRawMenu(doc, r, date)
}

func (p *Pipeline) normalizeAndDeliver(ctx context.Context, raw *menu.RawMenuData, out *Outcome) {
	log := logger.ForMenu(raw.Restaurant, raw.Date)

	parsed, err := p.cfg.Normalizer.Normalize(ctx, raw)
	if err != nil {
		out.Err = err
		log.Error("menu normalization failed", "error", err)
		return
	}
	out.Parsed = parsed

	p.deliver(ctx, out)

	if len(parsed.SlotErrors) > 0 {
		log.Warn("menu partially processed", "summary", parsed.Summary(), "failed", failedLabels(parsed))
	} else {
		log.Info("menu processed", "summary", parsed.Summary(), "posted", len(out.Posted))
	}
}

// deliver posts every successful slot to every active poster. A slot whose
// label maps to no time slot, or whose time slot has no price, is skipped.
func (p *Pipeline) deliver(ctx context.Context, out *Outcome) {
	posters := p.posters()
	if len(posters) == 0 {
		return
	}
	parsed := out.Parsed
	log := logger.ForMenu(parsed.Restaurant, parsed.Date)

	for _, label := range parsed.SuccessfulSlots() {
		slot, err := menu.ResolveTimeSlot(parsed.Restaurant, label)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedSlot{Label: label, Reason: err.Error()})
			log.Warn("slot not posted", "label", label, "reason", err)
			continue
		}
		price, ok := menu.ResolvePrice(parsed.Restaurant, slot)
		if !ok {
			reason := fmt.Sprintf("no price for %s", slot)
			out.Skipped = append(out.Skipped, SkippedSlot{Label: label, Reason: reason})
			log.Warn("slot not posted", "label", label, "reason", reason)
			continue
		}

		items := parsed.Items(label)
		errs := postAll(ctx, posters, parsed, slot, items, price)
		if len(errs) > 0 {
			out.PostErrors = append(out.PostErrors, errs...)
			continue
		}
		out.Posted = append(out.Posted, PostedSlot{Label: label, Slot: slot, Price: price, Items: len(items)})
	}
}

func postAll(ctx context.Context, posters []Poster, parsed *menu.ParsedMenuData, slot menu.TimeSlot, items []string, price int) []error {
	errs := make([]error, len(posters))
	var wg sync.WaitGroup
	for i, poster := range posters {
		wg.Add(1)
		go func(i int, poster Poster) {
			defer wg.Done()
			errs[i] = poster.Post(ctx, parsed.Date, parsed.Restaurant, slot, items, price)
		}(i, poster)
	}
	wg.Wait()

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// ProcessWeek processes each date with bounded concurrency. Outcomes are
// returned in the order of dates. The dormitory page is fetched once per
// calendar week covered by dates.
func (p *Pipeline) ProcessWeek(ctx context.Context, r menu.Restaurant, dates []string) []*Outcome {
	if len(dates) == 0 {
		return nil
	}
	if r == menu.Dormitory {
		return p.dormitoryDates(ctx, dates)
	}

	outcomes := make([]*Outcome, len(dates))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, date := range dates {
		wg.Add(1)
		go func(i int, date string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = &Outcome{Date: date, Restaurant: r, Err: ctx.Err()}
				return
			}
			outcomes[i] = p.ProcessDate(ctx, r, date)
		}(i, date)
	}
	wg.Wait()
	return outcomes
}

// dormitoryDates fetches the weekly table once for every distinct week
// among dates and returns the outcomes in the order of dates.
func (p *Pipeline) dormitoryDates(ctx context.Context, dates []string) []*Outcome {
	r := menu.Dormitory
	var weeks []string
	byWeek := make(map[string][]string)
	out := make([]*Outcome, len(dates))
	for i, date := range dates {
		monday, err := calendar.WeekOf(date)
		if err != nil {
			out[i] = &Outcome{Date: date, Restaurant: r, Err: err}
			continue
		}
		if _, seen := byWeek[monday]; !seen {
			weeks = append(weeks, monday)
		}
		byWeek[monday] = append(byWeek[monday], date)
	}

	byDate := make(map[string]*Outcome, len(dates))
	for _, monday := range weeks {
		group := byWeek[monday]
		for _, o := range p.selectDates(r, group, p.ProcessDormitoryWeek(ctx, group[0])) {
			byDate[o.Date] = o
		}
	}
	for i, date := range dates {
		if out[i] == nil {
			out[i] = byDate[date]
		}
	}
	return out
}

func (p *Pipeline) selectDates(r menu.Restaurant, dates []string, week []*Outcome) []*Outcome {
	byDate := make(map[string]*Outcome, len(week))
	var weekErr error
	for _, o := range week {
		byDate[o.Date] = o
		var fe *menu.MenuFetchError
		if errors.As(o.Err, &fe) {
			weekErr = o.Err
		}
	}

	out := make([]*Outcome, 0, len(dates))
	for _, date := range dates {
		if o, ok := byDate[date]; ok {
			out = append(out, o)
			continue
		}
		err := weekErr
		if err == nil {
			err = &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "date not present in weekly table"}
		}
		out = append(out, &Outcome{Date: date, Restaurant: r, Err: err})
	}
	return out
}

// ProcessDormitoryWeek fetches the dormitory table for the week containing
// date and processes every day it lists. A failure to fetch or read the
// table yields a single failed outcome for date.
func (p *Pipeline) ProcessDormitoryWeek(ctx context.Context, date string) []*Outcome {
	r := menu.Dormitory
	log := logger.ForMenu(r, date)

	page, err := p.cfg.Fetcher.Fetch(ctx, r, date)
	if err != nil {
		err = &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "page fetch failed", Err: err}
		log.Error("dormitory fetch failed", "error", err)
		return []*Outcome{{Date: date, Restaurant: r, Err: err}}
	}
	doc, err := scraper.Parse(page.HTML)
	if err != nil {
		return []*Outcome{{Date: date, Restaurant: r, Err: &menu.MenuFetchError{Date: date, Restaurant: r, Err: err}}}
	}

	days, err := p.cfg.Extractor.ExtractDormitoryWeek(doc, date)
	if err != nil {
		log.Error("dormitory table unreadable", "error", err)
		return []*Outcome{{Date: date, Restaurant: r, Err: err}}
	}
	days = p.cfg.Extractor.ApplyBreakfastPolicy(days)
	log.Info("dormitory week extracted", "days", len(days))

	outcomes := make([]*Outcome, len(days))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, raw := range days {
		wg.Add(1)
		go func(i int, raw *menu.RawMenuData) {
			defer wg.Done()
			out := &Outcome{Date: raw.Date, Restaurant: r}
			outcomes[i] = out
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out.Err = ctx.Err()
				return
			}
			p.normalizeAndDeliver(ctx, raw, out)
		}(i, raw)
	}
	wg.Wait()
	return outcomes
}

// NotifyOutcome sends the menu message for a processed date, or the error
// message when it failed. Holidays are not reported.
func (p *Pipeline) NotifyOutcome(ctx context.Context, o *Outcome) error {
	switch {
	case o.Err != nil && menu.IsHoliday(o.Err):
		return nil
	case o.Err != nil:
		return p.cfg.Notifier.Send(ctx, notify.ErrorMessage(o.Err))
	default:
		return p.cfg.Notifier.Send(ctx, notify.MenuMessage(o.Parsed))
	}
}

// NotifyWeek sends one summary covering all outcomes. It is called after
// every date has completed.
func (p *Pipeline) NotifyWeek(ctx context.Context, r menu.Restaurant, outcomes []*Outcome) error {
	days := make([]notify.DayResult, 0, len(outcomes))
	for _, o := range outcomes {
		days = append(days, notify.DayResult{Date: o.Date, Parsed: o.Parsed, Err: o.Err})
	}
	return p.cfg.Notifier.Send(ctx, notify.WeeklySummary(r, days))
}

// RunWeek processes dates and then sends the weekly summary.
func (p *Pipeline) RunWeek(ctx context.Context, r menu.Restaurant, dates []string) []*Outcome {
	outcomes := p.ProcessWeek(ctx, r, dates)
	if err := p.NotifyWeek(ctx, r, outcomes); err != nil {
		logger.Warn("weekly notification failed", "restaurant", r, "error", err)
	}
	return outcomes
}
