package menu

import (
	"fmt"
	"strings"
)

// TimeSlot is a serving period recognized by the downstream menu API.
type TimeSlot string

const (
	OneDollarMorning TimeSlot = "ONE_DOLLAR_MORNING"
	Lunch            TimeSlot = "LUNCH"
	Dinner           TimeSlot = "DINNER"
)

type slotNames struct {
	korean string
	code   string
	wire   string
}

var timeSlots = map[TimeSlot]slotNames{
	OneDollarMorning: {korean: "1000원 조식", code: "1M", wire: "MORNING"},
	Lunch:            {korean: "점심", code: "L", wire: "LUNCH"},
	Dinner:           {korean: "저녁", code: "D", wire: "DINNER"},
}

// KoreanName returns the display name of the slot.
func (t TimeSlot) KoreanName() string {
	return timeSlots[t].korean
}

// Code returns the short code (1M, L, D).
func (t TimeSlot) Code() string {
	return timeSlots[t].code
}

// WireName is the value sent as the "time" parameter to the menu API.
func (t TimeSlot) WireName() string {
	if n, ok := timeSlots[t]; ok {
		return n.wire
	}
	return string(t)
}

func (t TimeSlot) String() string {
	return string(t)
}

// ParseTimeSlot accepts the Korean name, short code, wire name or constant name.
func ParseTimeSlot(s string) (TimeSlot, error) {
	s = strings.TrimSpace(s)
	for slot, n := range timeSlots {
		if s == n.korean || strings.EqualFold(s, n.code) || strings.EqualFold(s, n.wire) || strings.EqualFold(s, string(slot)) {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown time slot: %q", s)
}

// Source slot labels as they appear on the cafeteria pages.
const (
	LabelBreakfast = "조식"
	LabelLunch     = "중식"
	LabelDinner    = "석식"
)

// ResolveTimeSlot maps a scraped slot label such as "중식1" to a TimeSlot for
// restaurant r. Labels are matched by the meal word they contain.
//
// It returns ErrSlotNotServed for labels the restaurant is known not to
// operate, and an *UnrecognizedSlotError for anything else it cannot map.
func ResolveTimeSlot(r Restaurant, label string) (TimeSlot, error) {
	label = strings.TrimSpace(label)
	has := func(word string) bool { return strings.Contains(label, word) }

	switch r {
	case Haksik:
		switch {
		case has(LabelLunch):
			return Lunch, nil
		case has(LabelDinner):
			// The student cafeteria's evening label carries the 1000-won meal.
			return OneDollarMorning, nil
		}
	case Dodam, Dormitory:
		switch {
		case has(LabelBreakfast):
			return "", ErrSlotNotServed
		case has(LabelLunch):
			return Lunch, nil
		case has(LabelDinner):
			return Dinner, nil
		}
	case Faculty:
		if has(LabelLunch) {
			return Lunch, nil
		}
	}
	return "", &UnrecognizedSlotError{Restaurant: r, Label: label}
}
