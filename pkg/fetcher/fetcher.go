// Package fetcher retrieves cafeteria pages.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// Fetcher abstracts page retrieval so tests can serve canned pages.
type Fetcher interface {
	// Fetch retrieves the menu page of restaurant r for date (YYYYMMDD).
	Fetch(ctx context.Context, r menu.Restaurant, date string) (*Page, error)
}

// Page is a fetched HTML page.
type Page struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// ErrNoSource is returned for a restaurant with no configured page.
var ErrNoSource = errors.New("restaurant has no menu source")

// Sources holds the base URLs of the menu sites.
type Sources struct {
	// PortalURL serves list pages for restaurants with a source code.
	PortalURL string
	// DormitoryURL serves the dormitory's weekly table.
	DormitoryURL string
}

// DefaultSources returns the production sites.
func DefaultSources() Sources {
	return Sources{
		PortalURL:    "http://m.soongguri.com/m_req/m_menu.php",
		DormitoryURL: "https://ssudorm.ssu.ac.kr:444/SShostel/mall_main.php",
	}
}

// URL builds the page URL for restaurant r on date.
func (s Sources) URL(r menu.Restaurant, date string) (string, error) {
	t, err := calendar.ParseDate(date)
	if err != nil {
		return "", err
	}

	if r == menu.Dormitory {
		u, err := url.Parse(s.DormitoryURL)
		if err != nil {
			return "", fmt.Errorf("invalid dormitory url: %w", err)
		}
		q := u.Query()
		q.Set("viewform", "B0001_foodboard_list")
		q.Set("gyear", strconv.Itoa(t.Year()))
		q.Set("gmonth", strconv.Itoa(int(t.Month())))
		q.Set("gday", strconv.Itoa(t.Day()))
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	code, ok := r.SourceCode()
	if !ok {
		return "", fmt.Errorf("%s: %w", r, ErrNoSource)
	}
	u, err := url.Parse(s.PortalURL)
	if err != nil {
		return "", fmt.Errorf("invalid portal url: %w", err)
	}
	q := u.Query()
	q.Set("rcd", strconv.Itoa(code))
	q.Set("sdt", date)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
