package scraper

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/grid"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// ExtractDormitoryWeek reads the dormitory's weekly table and returns one
// record per listed day. Rows that only show month and day take
// the year closest to referenceDate (YYYYMMDD).
//
// Each meal cell is split into lines; lines containing the not-operating
// marker are dropped and a slot with no remaining line is omitted.
// Breakfast is kept here and removed later by ApplyBreakfastPolicy.
func (e *Extractor) ExtractDormitoryWeek(doc *goquery.Document, referenceDate string) ([]*menu.RawMenuData, error) {
	table := doc.Find(e.opts.TableSelector).First()
	if table.Length() == 0 {
		return nil, &menu.MenuFetchError{Date: referenceDate, Restaurant: menu.Dormitory, Reason: "menu table not found"}
	}

	rows := grid.FlattenTable(table)
	if len(rows) < 2 {
		return nil, &menu.MenuFetchError{Date: referenceDate, Restaurant: menu.Dormitory, Reason: "menu table has no body rows"}
	}

	header := rows[0]
	dateIdx := slices.Index(header, e.opts.DateColumn)
	if dateIdx < 0 {
		return nil, &menu.MenuFetchError{Date: referenceDate, Restaurant: menu.Dormitory, Reason: "date column not found"}
	}

	type column struct {
		label string
		idx   int
	}
	var meals []column
	for _, label := range e.opts.MealColumns {
		if slices.Contains(e.opts.DropColumns, label) {
			continue
		}
		if idx := slices.Index(header, label); idx >= 0 {
			meals = append(meals, column{label: label, idx: idx})
		}
	}

	// A bad reference leaves the zero time; month-day rows are then skipped.
	reference, _ := calendar.ParseDate(referenceDate)

	var week []*menu.RawMenuData
	for _, row := range rows[1:] {
		if dateIdx >= len(row) {
			continue
		}
		date, ok := parseDormitoryDate(row[dateIdx], reference)
		if !ok {
			logger.Debug("skipping dormitory row without a date", "cell", row[dateIdx])
			continue
		}

		day := menu.NewRawMenuData(date, menu.Dormitory)
		for _, col := range meals {
			if col.idx >= len(row) {
				continue
			}
			lines := e.mealLines(row[col.idx])
			if len(lines) == 0 {
				continue
			}
			day.SetSlot(col.label, strings.Join(lines, "\n"))
		}
		if len(day.Slots) == 0 {
			logger.Debug("dormitory day has no operating slots", "date", date)
			continue
		}
		week = append(week, day)
	}

	if len(week) == 0 {
		return nil, &menu.MenuFetchError{Date: referenceDate, Restaurant: menu.Dormitory, Reason: "every slot is empty"}
	}
	return week, nil
}

// mealLines splits a cell on line breaks and drops blank and not-operating lines.
func (e *Extractor) mealLines(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if e.opts.NotOperatingMarker != "" && strings.Contains(p, e.opts.NotOperatingMarker) {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}

// parseDormitoryDate reads the leading date token of a cell such as
// "2024-03-25 (월)" or "03-25(월)" into YYYYMMDD. A month and day without a
// year is placed in the year that puts it closest to reference, so a week
// spanning New Year keeps its dates in order.
func parseDormitoryDate(cell string, reference time.Time) (string, bool) {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return "", false
	}

	var digits strings.Builder
scan:
	for _, r := range fields[0] {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '-' || r == '.' || r == '/':
		default:
			break scan
		}
	}

	d := digits.String()
	switch len(d) {
	case 8:
		if _, err := calendar.ParseDate(d); err != nil {
			return "", false
		}
		return d, true
	case 4:
		if reference.IsZero() {
			return "", false
		}
		month, _ := strconv.Atoi(d[:2])
		day, _ := strconv.Atoi(d[2:])
		t, ok := calendar.ResolveMonthDay(month, day, reference)
		if !ok {
			return "", false
		}
		return calendar.FormatDate(t), true
	}
	return "", false
}
