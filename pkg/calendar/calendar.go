// Package calendar computes menu dates in the cafeteria's local time.
package calendar

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Seoul must resolve on hosts without a zoneinfo database
)

// DateLayout is the YYYYMMDD form used for every menu date.
const DateLayout = "20060102"

// Seoul is the fixed zone all dates are computed in.
var Seoul = mustLoad("Asia/Seoul")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("calendar: load %s: %v", name, err))
	}
	return loc
}

// Week selects the current or the following Monday-to-Friday window.
type Week int

const (
	Current Week = iota
	Next
)

func (w Week) String() string {
	if w == Next {
		return "next"
	}
	return "current"
}

// ParseWeek accepts "current", "this" or "next".
func ParseWeek(s string) (Week, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current", "this":
		return Current, nil
	case "next":
		return Next, nil
	}
	return Current, fmt.Errorf("unknown week %q (use current or next)", s)
}

// WeeklyDates returns Monday through Friday of the selected week as
// YYYYMMDD strings. reference is converted to Asia/Seoul first, so an
// instant late on Sunday UTC may already belong to Monday.
func WeeklyDates(reference time.Time, week Week) []string {
	monday := mondayOf(reference)
	if week == Next {
		monday = monday.AddDate(0, 0, 7)
	}

	dates := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		dates = append(dates, monday.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}

func mondayOf(t time.Time) time.Time {
	local := t.In(Seoul)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Seoul)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	return day.AddDate(0, 0, -offset)
}

// WeekOf returns the Monday (YYYYMMDD) of the week containing date.
func WeekOf(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return mondayOf(t).Format(DateLayout), nil
}

// ResolveMonthDay places a month and day that were printed without a year.
// Of the previous, the same and the following year of reference, the one
// giving the date closest to reference wins.
func ResolveMonthDay(month, day int, reference time.Time) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	ref := reference.In(Seoul)
	var (
		best     time.Time
		bestDist time.Duration
	)
	for year := ref.Year() - 1; year <= ref.Year()+1; year++ {
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, Seoul)
		if t.Month() != time.Month(month) {
			continue // no such day in that year, e.g. 02-29
		}
		dist := t.Sub(ref)
		if dist < 0 {
			dist = -dist
		}
		if best.IsZero() || dist < bestDist {
			best, bestDist = t, dist
		}
	}
	return best, !best.IsZero()
}

// Today returns the current date in Seoul.
func Today() string {
	return time.Now().In(Seoul).Format(DateLayout)
}

// ParseDate parses a YYYYMMDD string as midnight in Seoul.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, Seoul)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYYMMDD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats t in Seoul as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.In(Seoul).Format(DateLayout)
}

// IsWeekend reports whether the YYYYMMDD date falls on Saturday or Sunday.
func IsWeekend(s string) (bool, error) {
	t, err := ParseDate(s)
	if err != nil {
		return false, err
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday, nil
}
