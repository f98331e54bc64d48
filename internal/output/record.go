package output

import (
	"errors"

	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

// Record is the serialized form of one processed date.
type Record struct {
	Date           string       `json:"date" yaml:"date"`
	Restaurant     string       `json:"restaurant" yaml:"restaurant"`
	RestaurantName string       `json:"restaurant_name" yaml:"restaurant_name"`
	Status         string       `json:"status" yaml:"status"`
	Summary        string       `json:"summary,omitempty" yaml:"summary,omitempty"`
	Slots          []SlotRecord `json:"slots,omitempty" yaml:"slots,omitempty"`
	Error          string       `json:"error,omitempty" yaml:"error,omitempty"`
	PostErrors     []string     `json:"post_errors,omitempty" yaml:"post_errors,omitempty"`
}

// SlotRecord is one slot of a Record.
type SlotRecord struct {
	Label    string   `json:"label" yaml:"label"`
	TimeSlot string   `json:"time_slot,omitempty" yaml:"time_slot,omitempty"`
	Price    int      `json:"price,omitempty" yaml:"price,omitempty"`
	Items    []string `json:"items" yaml:"items"`
	Status   string   `json:"status" yaml:"status"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
	Posted   bool     `json:"posted" yaml:"posted"`
	Skipped  string   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// FromOutcome converts a pipeline outcome.
func FromOutcome(o *pipeline.Outcome) Record {
	rec := Record{
		Date:           o.Date,
		Restaurant:     string(o.Restaurant),
		RestaurantName: o.Restaurant.KoreanName(),
		Status:         o.Status(),
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	for _, err := range o.PostErrors {
		rec.PostErrors = append(rec.PostErrors, err.Error())
	}
	if o.Parsed == nil {
		return rec
	}

	rec.Summary = o.Parsed.Summary()
	posted := make(map[string]bool, len(o.Posted))
	for _, p := range o.Posted {
		posted[p.Label] = true
	}
	skipped := make(map[string]string, len(o.Skipped))
	for _, s := range o.Skipped {
		skipped[s.Label] = s.Reason
	}

	for _, s := range o.Parsed.Slots {
		sr := SlotRecord{
			Label:   s.Label,
			Items:   s.Items,
			Status:  o.Parsed.Status(s.Label),
			Error:   o.Parsed.SlotErrors[s.Label],
			Posted:  posted[s.Label],
			Skipped: skipped[s.Label],
		}
		if slot, err := menu.ResolveTimeSlot(o.Restaurant, s.Label); err == nil {
			sr.TimeSlot = slot.WireName()
			sr.Price, _ = menu.ResolvePrice(o.Restaurant, slot)
		} else if !errors.Is(err, menu.ErrSlotNotServed) && sr.Skipped == "" {
			sr.Skipped = err.Error()
		}
		rec.Slots = append(rec.Slots, sr)
	}
	return rec
}

// FromOutcomes converts outcomes in order.
func FromOutcomes(outcomes []*pipeline.Outcome) []Record {
	out := make([]Record, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, FromOutcome(o))
	}
	return out
}
