package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// CheckHoliday returns a *menu.HolidayError when the page announces a
// closure, either with a text node equal to a holiday phrase or with a
// holiday keyword anywhere in the page text.
func (e *Extractor) CheckHoliday(doc *goquery.Document, r menu.Restaurant, date string) error {
	if e.hasHolidayPhrase(doc.Selection) {
		return &menu.HolidayError{Date: date, Restaurant: r}
	}
	text := doc.Text()
	for _, kw := range e.opts.HolidayKeywords {
		if kw != "" && strings.Contains(text, kw) {
			return &menu.HolidayError{Date: date, Restaurant: r}
		}
	}
	return nil
}

func (e *Extractor) hasHolidayPhrase(s *goquery.Selection) bool {
	var found bool
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			for _, phrase := range e.opts.HolidayPhrases {
				if t == phrase {
					found = true
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return found
}

// ExtractList reads a list-shaped portal page. Every row holding a marker
// cell becomes a slot named by the marker's text, valued with all of the
// row's visible text joined by single spaces.
func (e *Extractor) ExtractList(doc *goquery.Document, r menu.Restaurant, date string) (*menu.RawMenuData, error) {
	raw := menu.NewRawMenuData(date, r)
	marker := "td." + e.opts.MarkerClass

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cell := tr.Find(marker).First()
		if cell.Length() == 0 {
			return
		}
		label := collapse(cell.Text())
		if label == "" {
			return
		}
		raw.SetSlot(label, strings.Join(strippedStrings(tr), " "))
	})

	if len(raw.Slots) == 0 {
		return nil, &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "no menu rows found"}
	}

	empty := true
	for _, s := range raw.Slots {
		if s.Text != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, &menu.MenuFetchError{Date: date, Restaurant: r, Reason: "every slot is empty"}
	}
	return raw, nil
}
