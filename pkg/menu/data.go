package menu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("restaurant", func(fl validator.FieldLevel) bool {
			return Restaurant(fl.Field().String()).Valid()
		})
	})
	return validate
}

// RawSlot is one slot label with the free text scraped for it.
type RawSlot struct {
	Label string `json:"label" yaml:"label" validate:"required"`
	Text  string `json:"text" yaml:"text"`
}

// RawMenuData is the scraped, unnormalized menu of one restaurant on one date.
// Slots keep the order in which they were found on the page.
type RawMenuData struct {
	Date       string     `json:"date" yaml:"date" validate:"required,len=8,numeric"`
	Restaurant Restaurant `json:"restaurant" yaml:"restaurant" validate:"required,restaurant"`
	Slots      []RawSlot  `json:"slots" yaml:"slots" validate:"dive"`
}

// NewRawMenuData returns an empty record for restaurant r on date.
func NewRawMenuData(date string, r Restaurant) *RawMenuData {
	return &RawMenuData{Date: date, Restaurant: r}
}

// SetSlot stores text under label. An existing label keeps its position and
// has its text replaced.
func (d *RawMenuData) SetSlot(label, text string) {
	for i := range d.Slots {
		if d.Slots[i].Label == label {
			d.Slots[i].Text = text
			return
		}
	}
	d.Slots = append(d.Slots, RawSlot{Label: label, Text: text})
}

// Text returns the raw text for label.
func (d *RawMenuData) Text(label string) (string, bool) {
	for _, s := range d.Slots {
		if s.Label == label {
			return s.Text, true
		}
	}
	return "", false
}

// Labels returns slot labels in discovery order.
func (d *RawMenuData) Labels() []string {
	out := make([]string, 0, len(d.Slots))
	for _, s := range d.Slots {
		out = append(out, s.Label)
	}
	return out
}

// RemoveSlot drops label and reports whether it was present.
func (d *RawMenuData) RemoveSlot(label string) bool {
	for i, s := range d.Slots {
		if s.Label == label {
			d.Slots = append(d.Slots[:i], d.Slots[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks the date format, restaurant and slot labels.
func (d *RawMenuData) Validate() error {
	if err := validatorInstance().Struct(d); err != nil {
		return fmt.Errorf("invalid raw menu: %w", err)
	}
	return nil
}

// ParsedSlot holds the normalized items of one slot.
type ParsedSlot struct {
	Label string   `json:"label" yaml:"label"`
	Items []string `json:"items" yaml:"items"`
}

// ParsedMenuData is the normalized counterpart of RawMenuData. A slot that
// failed normalization has empty items and an entry in SlotErrors.
type ParsedMenuData struct {
	Date       string            `json:"date" yaml:"date"`
	Restaurant Restaurant        `json:"restaurant" yaml:"restaurant"`
	Slots      []ParsedSlot      `json:"slots" yaml:"slots"`
	Success    bool              `json:"success" yaml:"success"`
	SlotErrors map[string]string `json:"slot_errors,omitempty" yaml:"slot_errors,omitempty"`
}

// NewParsedMenuData returns an empty, successful record.
func NewParsedMenuData(date string, r Restaurant) *ParsedMenuData {
	return &ParsedMenuData{
		Date:       date,
		Restaurant: r,
		Success:    true,
		SlotErrors: map[string]string{},
	}
}

func (p *ParsedMenuData) slot(label string) *ParsedSlot {
	for i := range p.Slots {
		if p.Slots[i].Label == label {
			return &p.Slots[i]
		}
	}
	p.Slots = append(p.Slots, ParsedSlot{Label: label, Items: []string{}})
	return &p.Slots[len(p.Slots)-1]
}

// SetItems records the normalized items for label.
func (p *ParsedMenuData) SetItems(label string, items []string) {
	s := p.slot(label)
	s.Items = append([]string{}, items...)
}

// AddError records a failure for label. The slot's items are cleared and the
// record is no longer successful.
func (p *ParsedMenuData) AddError(label, message string) {
	s := p.slot(label)
	s.Items = []string{}
	if p.SlotErrors == nil {
		p.SlotErrors = map[string]string{}
	}
	p.SlotErrors[label] = message
	p.Success = false
}

// Items returns the items recorded for label.
func (p *ParsedMenuData) Items(label string) []string {
	for _, s := range p.Slots {
		if s.Label == label {
			return s.Items
		}
	}
	return nil
}

// AllSlots returns every slot label, successful or not, in order.
func (p *ParsedMenuData) AllSlots() []string {
	out := make([]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		out = append(out, s.Label)
	}
	return out
}

// SuccessfulSlots returns labels with no error and at least one item.
func (p *ParsedMenuData) SuccessfulSlots() []string {
	var out []string
	for _, s := range p.Slots {
		if _, failed := p.SlotErrors[s.Label]; failed {
			continue
		}
		if len(s.Items) == 0 {
			continue
		}
		out = append(out, s.Label)
	}
	return out
}

// IsCompleteSuccess reports no slot errors and at least one slot.
func (p *ParsedMenuData) IsCompleteSuccess() bool {
	return len(p.SlotErrors) == 0 && len(p.Slots) > 0
}

// IsPartialSuccess reports that some, but not all, slots succeeded.
func (p *ParsedMenuData) IsPartialSuccess() bool {
	return len(p.SlotErrors) > 0 && len(p.SuccessfulSlots()) > 0
}

// IsEmpty reports that no slot has any item.
func (p *ParsedMenuData) IsEmpty() bool {
	return len(p.SuccessfulSlots()) == 0
}

// Status summarizes a single slot as "ok", "error" or "empty".
func (p *ParsedMenuData) Status(label string) string {
	if _, failed := p.SlotErrors[label]; failed {
		return "error"
	}
	if len(p.Items(label)) == 0 {
		return "empty"
	}
	return "ok"
}

// Summary renders "n/m slots parsed" for notifications and logs.
func (p *ParsedMenuData) Summary() string {
	return fmt.Sprintf("%d/%d slots parsed", len(p.SuccessfulSlots()), len(p.Slots))
}

// String renders slots as "label: a, b | label: c".
func (p *ParsedMenuData) String() string {
	parts := make([]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		if msg, failed := p.SlotErrors[s.Label]; failed {
			parts = append(parts, fmt.Sprintf("%s: (error: %s)", s.Label, msg))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", s.Label, strings.Join(s.Items, ", ")))
	}
	return strings.Join(parts, " | ")
}
