package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

func sampleOutcome() *pipeline.Outcome {
	parsed := menu.NewParsedMenuData("20240325", menu.Dodam)
	parsed.SetItems("중식1", []string{"매실우불고기", "잡곡밥"})
	parsed.AddError("석식1", "no menu items found")
	return &pipeline.Outcome{
		Date:       "20240325",
		Restaurant: menu.Dodam,
		Parsed:     parsed,
		Posted:     []pipeline.PostedSlot{{Label: "중식1", Slot: menu.Lunch, Price: 6000, Items: 2}},
	}
}

func holidayOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		Date:       "20240301",
		Restaurant: menu.Dodam,
		Err:        &menu.HolidayError{Date: "20240301", Restaurant: menu.Dodam},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSONL", FormatJSONL, false},
		{" yaml ", FormatYAML, false},
		{"xlsx", FormatXLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
		{FormatXLSX, "*output.XLSXWriter"},
	}
	for _, tt := range tests {
		w, err := NewWriter(&bytes.Buffer{}, tt.format)
		if err != nil {
			t.Fatalf("NewWriter(%s) error = %v", tt.format, err)
		}
		if got := reflect.TypeOf(w).String(); got != tt.want {
			t.Errorf("NewWriter(%s) = %s, want %s", tt.format, got, tt.want)
		}
	}

	if _, err := NewWriter(&bytes.Buffer{}, Format("unsupported")); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestFromOutcome(t *testing.T) {
	rec := FromOutcome(sampleOutcome())

	if rec.Status != pipeline.StatusPartial || rec.RestaurantName != "도담식당" || rec.Summary != "1/2 slots parsed" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Slots) != 2 {
		t.Fatalf("slots = %+v", rec.Slots)
	}
	lunch, dinner := rec.Slots[0], rec.Slots[1]
	if !lunch.Posted || lunch.TimeSlot != "LUNCH" || lunch.Price != 6000 || lunch.Status != "ok" {
		t.Errorf("lunch = %+v", lunch)
	}
	if dinner.Posted || dinner.Status != "error" || dinner.Error != "no menu items found" || dinner.TimeSlot != "DINNER" {
		t.Errorf("dinner = %+v", dinner)
	}

	hol := FromOutcome(holidayOutcome())
	if hol.Status != pipeline.StatusHoliday || hol.Error == "" || len(hol.Slots) != 0 {
		t.Errorf("holiday record = %+v", hol)
	}

	failed := FromOutcome(&pipeline.Outcome{Date: "20240325", Restaurant: menu.Haksik, PostErrors: []error{errors.New("boom")}, Err: errors.New("down")})
	if failed.Status != pipeline.StatusFailed || len(failed.PostErrors) != 1 {
		t.Errorf("failed record = %+v", failed)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Run("single record is an object", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := NewJSONWriter(buf, true, "  ")
		_ = w.Write(FromOutcome(sampleOutcome()))
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		var got Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
		}
		if got.Date != "20240325" || len(got.Slots) != 2 {
			t.Errorf("decoded = %+v", got)
		}
		if !strings.Contains(buf.String(), "매실우불고기") {
			t.Error("Korean text should not be escaped")
		}
	})

	t.Run("several records are an array", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := NewJSONWriter(buf, false, "")
		_ = w.WriteAll(FromOutcomes([]*pipeline.Outcome{sampleOutcome(), holidayOutcome()}))
		if err := w.Flush(); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		var got []Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 2 || got[1].Status != "holiday" {
			t.Errorf("decoded = %+v", got)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})

	t.Run("empty flush writes nothing", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := NewJSONWriter(buf, true, "  ").Flush(); err != nil || buf.Len() != 0 {
			t.Errorf("Flush() = %v, wrote %q", err, buf.String())
		}
	})
}

func TestJSONLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	if err := w.WriteAll(FromOutcomes([]*pipeline.Outcome{sampleOutcome(), holidayOutcome()})); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line %d invalid: %v", i, err)
		}
	}
}

func TestYAMLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	_ = w.Write(FromOutcome(sampleOutcome()))
	_ = w.Write(FromOutcome(holidayOutcome()))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []Record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0].Slots[0].Items[0] != "매실우불고기" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestXLSXWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatXLSX, WithSheet("식단"))
	if err != nil {
		t.Fatal(err)
	}
	_ = w.WriteAll(FromOutcomes([]*pipeline.Outcome{sampleOutcome(), holidayOutcome()}))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("식단")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d: %v", len(rows), rows)
	}
	if !reflect.DeepEqual(rows[0], xlsxHeaders) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "중식1" || rows[1][4] != "6000" || rows[1][5] != "매실우불고기, 잡곡밥" || rows[1][7] != "Y" {
		t.Errorf("lunch row = %v", rows[1])
	}
	if rows[3][6] != "holiday" {
		t.Errorf("holiday row = %v", rows[3])
	}
}
