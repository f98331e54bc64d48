package menu

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResolveTimeSlot(t *testing.T) {
	tests := []struct {
		name       string
		restaurant Restaurant
		label      string
		want       TimeSlot
		notServed  bool
		unknown    bool
	}{
		{"haksik lunch", Haksik, "중식", Lunch, false, false},
		{"haksik dinner label is 1000 won meal", Haksik, "석식", OneDollarMorning, false, false},
		{"haksik breakfast unrecognized", Haksik, "조식", "", false, true},
		{"dodam breakfast not served", Dodam, "조식", "", true, false},
		{"dodam lunch", Dodam, "중식", Lunch, false, false},
		{"dodam dinner", Dodam, "석식", Dinner, false, false},
		{"dormitory breakfast not served", Dormitory, "조식", "", true, false},
		{"dormitory dinner", Dormitory, "석식", Dinner, false, false},
		{"faculty lunch", Faculty, "중식", Lunch, false, false},
		{"faculty dinner unrecognized", Faculty, "석식", "", false, true},
		{"label is trimmed", Dodam, " 중식 ", Lunch, false, false},
		{"numbered haksik dinner", Haksik, "석식1", OneDollarMorning, false, false},
		{"numbered dodam lunch", Dodam, "중식2", Lunch, false, false},
		{"numbered faculty lunch", Faculty, "중식1", Lunch, false, false},
		{"garbage label", Dodam, "특식", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTimeSlot(tt.restaurant, tt.label)
			switch {
			case tt.notServed:
				if !errors.Is(err, ErrSlotNotServed) {
					t.Fatalf("expected ErrSlotNotServed, got %v", err)
				}
			case tt.unknown:
				var ue *UnrecognizedSlotError
				if !errors.As(err, &ue) {
					t.Fatalf("expected UnrecognizedSlotError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		restaurant Restaurant
		slot       TimeSlot
		want       int
		ok         bool
	}{
		{Haksik, OneDollarMorning, 1000, true},
		{Haksik, Lunch, 5000, true},
		{Dodam, Dinner, 6000, true},
		{Faculty, Lunch, 7000, true},
		{Faculty, Dinner, 0, false},
		{Dormitory, Lunch, 5500, true},
		{Dormitory, OneDollarMorning, 0, false},
		{Restaurant("NOPE"), Lunch, 0, false},
	}

	for _, tt := range tests {
		got, ok := ResolvePrice(tt.restaurant, tt.slot)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ResolvePrice(%s, %s) = %d, %v; want %d, %v", tt.restaurant, tt.slot, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSupportedSlots(t *testing.T) {
	tests := map[Restaurant][]TimeSlot{
		Haksik:    {OneDollarMorning, Lunch, Dinner},
		Dodam:     {Lunch, Dinner},
		Faculty:   {Lunch},
		Dormitory: {Lunch, Dinner},
	}
	for r, want := range tests {
		got := SupportedSlots(r)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("SupportedSlots(%s) = %v, want %v", r, got, want)
		}
		for _, slot := range got {
			if _, ok := ResolvePrice(r, slot); !ok {
				t.Errorf("%s serves %s but has no price", r, slot)
			}
		}
	}

	SupportedSlots(Dodam)[0] = Dinner
	if SupportedSlots(Dodam)[0] != Lunch {
		t.Error("SupportedSlots must return a copy")
	}
	if SupportedSlots(Restaurant("NOPE")) != nil {
		t.Error("unknown restaurant should have no slots")
	}
}

func TestParseRestaurant(t *testing.T) {
	tests := []struct {
		in      string
		want    Restaurant
		wantErr bool
	}{
		{"haksik", Haksik, false},
		{"DODAM", Dodam, false},
		{"교직원식당", Faculty, false},
		{" dormitory ", Dormitory, false},
		{"cafe", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRestaurant(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRestaurant(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRestaurant(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseTimeSlot(t *testing.T) {
	for _, in := range []string{"1000원 조식", "1M", "MORNING", "one_dollar_morning"} {
		got, err := ParseTimeSlot(in)
		if err != nil || got != OneDollarMorning {
			t.Errorf("ParseTimeSlot(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseTimeSlot("brunch"); err == nil {
		t.Error("expected error for unknown slot")
	}
}

func TestSourceCode(t *testing.T) {
	if code, ok := Faculty.SourceCode(); !ok || code != 7 {
		t.Errorf("Faculty.SourceCode() = %d, %v", code, ok)
	}
	if _, ok := Dormitory.SourceCode(); ok {
		t.Error("dormitory should have no source code")
	}
}

func TestRawMenuData_SetSlotKeepsOrder(t *testing.T) {
	d := NewRawMenuData("20240325", Dodam)
	d.SetSlot("중식", "a")
	d.SetSlot("석식", "b")
	d.SetSlot("중식", "c")

	labels := d.Labels()
	if strings.Join(labels, ",") != "중식,석식" {
		t.Fatalf("labels = %v", labels)
	}
	if text, _ := d.Text("중식"); text != "c" {
		t.Errorf("text = %q, want c", text)
	}
	if !d.RemoveSlot("석식") || len(d.Slots) != 1 {
		t.Error("RemoveSlot failed")
	}
}

func TestRawMenuData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    *RawMenuData
		wantErr bool
	}{
		{"valid", NewRawMenuData("20240325", Haksik), false},
		{"short date", NewRawMenuData("2024325", Haksik), true},
		{"non numeric date", NewRawMenuData("2024-03-", Haksik), true},
		{"unknown restaurant", NewRawMenuData("20240325", Restaurant("CAFE")), true},
		{"empty label", &RawMenuData{Date: "20240325", Restaurant: Dodam, Slots: []RawSlot{{Label: ""}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsedMenuData_Derived(t *testing.T) {
	p := NewParsedMenuData("20240325", Dodam)
	p.SetItems("중식", []string{"김치찌개", "쌀밥"})
	p.SetItems("석식", []string{})
	p.AddError("특식", "no menu items found")

	if p.Success {
		t.Error("Success should be false after AddError")
	}
	if got := p.SuccessfulSlots(); len(got) != 1 || got[0] != "중식" {
		t.Errorf("SuccessfulSlots() = %v", got)
	}
	if got := p.AllSlots(); len(got) != 3 {
		t.Errorf("AllSlots() = %v", got)
	}
	if p.IsCompleteSuccess() {
		t.Error("IsCompleteSuccess should be false")
	}
	if !p.IsPartialSuccess() {
		t.Error("IsPartialSuccess should be true")
	}
	if p.Status("석식") != "empty" || p.Status("특식") != "error" || p.Status("중식") != "ok" {
		t.Error("unexpected slot status")
	}
	if p.Summary() != "1/3 slots parsed" {
		t.Errorf("Summary() = %q", p.Summary())
	}
}

func TestParsedMenuData_AddErrorClearsItems(t *testing.T) {
	p := NewParsedMenuData("20240325", Haksik)
	p.SetItems("중식", []string{"라면"})
	p.AddError("중식", "boom")

	if len(p.Items("중식")) != 0 {
		t.Error("failed slot must have no items")
	}
	if !p.IsEmpty() {
		t.Error("IsEmpty should be true")
	}
}

func TestParsedMenuData_CompleteSuccessNeedsSlots(t *testing.T) {
	p := NewParsedMenuData("20240325", Haksik)
	if p.IsCompleteSuccess() {
		t.Error("empty record is not a complete success")
	}
	p.SetItems("중식", []string{"라면"})
	if !p.IsCompleteSuccess() {
		t.Error("expected complete success")
	}
}

func TestErrorMessages(t *testing.T) {
	err := error(&HolidayError{Date: "20240301", Restaurant: Dodam})
	if err.Error() != "도담식당(20240301) : 해당일은 휴무일입니다." {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsHoliday(err) {
		t.Error("IsHoliday should match")
	}

	cause := errors.New("timeout")
	fe := &MenuFetchError{Date: "20240301", Restaurant: Haksik, Err: cause}
	if !errors.Is(fe, cause) {
		t.Error("MenuFetchError should unwrap its cause")
	}
}
