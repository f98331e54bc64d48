package pipeline

import (
	"strings"

	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// Status values reported by Outcome.Status.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusHoliday = "holiday"
	StatusFailed  = "failed"
)

// PostedSlot records a slot delivered to every active poster.
type PostedSlot struct {
	Label string
	Slot  menu.TimeSlot
	Price int
	Items int
}

// SkippedSlot records a successful slot that was not posted.
type SkippedSlot struct {
	Label  string
	Reason string
}

// Outcome is the result of processing one restaurant on one date.
type Outcome struct {
	Date       string
	Restaurant menu.Restaurant
	Parsed     *menu.ParsedMenuData
	Posted     []PostedSlot
	Skipped    []SkippedSlot
	PostErrors []error
	Err        error
}

// Status classifies the outcome.
func (o *Outcome) Status() string {
	switch {
	case o.Err != nil && menu.IsHoliday(o.Err):
		return StatusHoliday
	case o.Err != nil || o.Parsed == nil:
		return StatusFailed
	case o.Parsed.IsEmpty():
		return StatusFailed
	case !o.Parsed.Success || len(o.PostErrors) > 0:
		return StatusPartial
	default:
		return StatusOK
	}
}

func failedLabels(p *menu.ParsedMenuData) string {
	var labels []string
	for _, label := range p.AllSlots() {
		if _, failed := p.SlotErrors[label]; failed {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ",")
}
