// Package scraper turns fetched cafeteria pages into RawMenuData.
//
// Two page shapes are supported: the portal's list pages, where each menu
// row carries a marker cell naming its slot, and the dormitory's weekly
// table, which is flattened with package grid and read column by column.
package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// Options controls the markers and policies used during extraction.
type Options struct {
	// MarkerClass is the class of the cell naming a slot on list pages.
	MarkerClass string

	// TableSelector locates the dormitory weekly table.
	TableSelector string
	DateColumn    string
	MealColumns   []string
	DropColumns   []string

	// NotOperatingMarker drops any dormitory line containing it.
	NotOperatingMarker string

	HolidayPhrases  []string
	HolidayKeywords []string

	// BreakfastLabel identifies breakfast slots for ExcludeBreakfast.
	BreakfastLabel   string
	ExcludeBreakfast map[menu.Restaurant]bool
}

// DefaultOptions returns the markers used by the live sites.
func DefaultOptions() Options {
	return Options{
		MarkerClass:        "menu_nm",
		TableSelector:      "table.boxstyle02",
		DateColumn:         "날짜",
		MealColumns:        []string{menu.LabelBreakfast, menu.LabelLunch, menu.LabelDinner},
		DropColumns:        []string{"중.석식"},
		NotOperatingMarker: "운영",
		HolidayPhrases:     []string{"오늘은 쉽니다."},
		HolidayKeywords:    []string{"휴무"},
		BreakfastLabel:     menu.LabelBreakfast,
		ExcludeBreakfast: map[menu.Restaurant]bool{
			menu.Haksik:    true,
			menu.Dormitory: true,
		},
	}
}

// Extractor extracts raw menus from parsed pages.
type Extractor struct {
	opts Options
}

// New creates an extractor. Empty fields fall back to DefaultOptions.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MarkerClass == "" {
		opts.MarkerClass = def.MarkerClass
	}
	if opts.TableSelector == "" {
		opts.TableSelector = def.TableSelector
	}
	if opts.DateColumn == "" {
		opts.DateColumn = def.DateColumn
	}
	if len(opts.MealColumns) == 0 {
		opts.MealColumns = def.MealColumns
	}
	if opts.DropColumns == nil {
		opts.DropColumns = def.DropColumns
	}
	if opts.NotOperatingMarker == "" {
		opts.NotOperatingMarker = def.NotOperatingMarker
	}
	if len(opts.HolidayPhrases) == 0 {
		opts.HolidayPhrases = def.HolidayPhrases
	}
	if len(opts.HolidayKeywords) == 0 {
		opts.HolidayKeywords = def.HolidayKeywords
	}
	if opts.BreakfastLabel == "" {
		opts.BreakfastLabel = def.BreakfastLabel
	}
	if opts.ExcludeBreakfast == nil {
		opts.ExcludeBreakfast = def.ExcludeBreakfast
	}
	return &Extractor{opts: opts}
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// Parse parses an HTML page.
func Parse(page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// ExtractRawMenu returns the raw menu of restaurant r on date.
//
// Portal pages are checked for a closure notice first and yield a
// *menu.HolidayError when one is present. A *menu.MenuFetchError is
// returned when no slot content can be located.
func (e *Extractor) ExtractRawMenu(doc *goquery.Document, r menu.Restaurant, date string) (*menu.RawMenuData, error) {
	var (
		raw *menu.RawMenuData
		err error
	)

	if r == menu.Dormitory {
		raw, err = e.dormitoryDay(doc, date)
	} else {
		if err := e.CheckHoliday(doc, r, date); err != nil {
			return nil, err
		}
		raw, err = e.ExtractList(doc, r, date)
	}
	if err != nil {
		return nil, err
	}

	e.applyBreakfastPolicy(raw)
	if len(raw.Slots) == 0 {
		return nil, &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "no slots left after breakfast policy"}
	}

	logger.Debug("raw menu extracted", "restaurant", r, "date", date, "slots", raw.Labels())
	return raw, nil
}

func (e *Extractor) dormitoryDay(doc *goquery.Document, date string) (*menu.RawMenuData, error) {
	week, err := e.ExtractDormitoryWeek(doc, date)
	if err != nil {
		return nil, err
	}
	for _, day := range week {
		if day.Date == date {
			return day, nil
		}
	}
	return nil, &menu.MenuFetchError{Date: date, Restaurant: menu.Dormitory, Reason: "date not present in weekly table"}
}

// ApplyBreakfastPolicy removes breakfast slots from each record when the
// restaurant is configured to exclude them.
func (e *Extractor) ApplyBreakfastPolicy(days []*menu.RawMenuData) []*menu.RawMenuData {
	out := days[:0:0]
	for _, d := range days {
		e.applyBreakfastPolicy(d)
		if len(d.Slots) > 0 {
			out = append(out, d)
		}
	}
	return out
}

func (e *Extractor) applyBreakfastPolicy(d *menu.RawMenuData) {
	if !e.opts.ExcludeBreakfast[d.Restaurant] {
		return
	}
	for _, label := range d.Labels() {
		if strings.Contains(label, e.opts.BreakfastLabel) {
			d.RemoveSlot(label)
		}
	}
}

// strippedStrings returns every non-blank text node under s, whitespace
// collapsed, in document order.
func strippedStrings(s *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := collapse(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}

// collapse joins whitespace-separated fields with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
