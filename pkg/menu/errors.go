package menu

import (
	"errors"
	"fmt"
)

// ErrSlotNotServed is returned by ResolveTimeSlot for a label the restaurant
// does not operate (e.g. breakfast at DODAM).
var ErrSlotNotServed = errors.New("time slot not served")

func describe(r Restaurant, date, note string) string {
	return fmt.Sprintf("%s(%s) : %s", r.KoreanName(), date, note)
}

// HolidayError reports that the restaurant is closed on Date. It is a hard
// stop for the whole page, never a per-slot failure.
type HolidayError struct {
	Date       string
	Restaurant Restaurant
}

func (e *HolidayError) Error() string {
	return describe(e.Restaurant, e.Date, "해당일은 휴무일입니다.")
}

// MenuFetchError reports that no usable menu could be retrieved or located.
type MenuFetchError struct {
	Date       string
	Restaurant Restaurant
	Reason     string
	Err        error
}

func (e *MenuFetchError) Error() string {
	note := "메뉴 정보 조회에 실패했습니다."
	if e.Reason != "" {
		note += " " + e.Reason
	}
	if e.Err != nil {
		note += ": " + e.Err.Error()
	}
	return describe(e.Restaurant, e.Date, note)
}

func (e *MenuFetchError) Unwrap() error {
	return e.Err
}

// MenuParseError is a single slot's normalization failure.
type MenuParseError struct {
	Date       string
	Restaurant Restaurant
	Label      string
	Err        error
}

func (e *MenuParseError) Error() string {
	return describe(e.Restaurant, e.Date, fmt.Sprintf("%s 메뉴 파싱 실패: %v", e.Label, e.Err))
}

func (e *MenuParseError) Unwrap() error {
	return e.Err
}

// UnrecognizedSlotError reports a slot label no TimeSlot maps to.
type UnrecognizedSlotError struct {
	Restaurant Restaurant
	Label      string
}

func (e *UnrecognizedSlotError) Error() string {
	return fmt.Sprintf("%s: unrecognized time slot label %q", e.Restaurant.KoreanName(), e.Label)
}

// MenuPostError reports a rejected or failed delivery to the menu API.
type MenuPostError struct {
	Date       string
	Restaurant Restaurant
	Slot       TimeSlot
	StatusCode int
	Err        error
}

func (e *MenuPostError) Error() string {
	note := fmt.Sprintf("%s 메뉴 전송 실패", e.Slot.KoreanName())
	if e.StatusCode != 0 {
		note += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		note += ": " + e.Err.Error()
	}
	return describe(e.Restaurant, e.Date, note)
}

func (e *MenuPostError) Unwrap() error {
	return e.Err
}

// IsHoliday reports whether err is or wraps a *HolidayError.
func IsHoliday(err error) bool {
	var he *HolidayError
	return errors.As(err, &he)
}
