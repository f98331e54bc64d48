package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var xlsxHeaders = []string{"날짜", "식당", "코너", "시간대", "가격", "메뉴", "상태", "전송", "오류"}

// XLSXWriter writes one worksheet row per slot. Records without slots get a
// single row carrying their status and error.
type XLSXWriter struct {
	w       io.Writer
	sheet   string
	records []Record
}

// NewXLSXWriter creates a spreadsheet writer.
func NewXLSXWriter(w io.Writer, sheet string) *XLSXWriter {
	return &XLSXWriter{w: w, sheet: sheet}
}

// Write buffers a record.
func (w *XLSXWriter) Write(rec Record) error {
	w.records = append(w.records, rec)
	return nil
}

// WriteAll buffers records.
func (w *XLSXWriter) WriteAll(recs []Record) error {
	w.records = append(w.records, recs...)
	return nil
}

// Flush writes the workbook. Nothing is written when no record is buffered.
func (w *XLSXWriter) Flush() error {
	if len(w.records) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := f.SetSheetRow(w.sheet, "A1", &xlsxHeaders); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(w.sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, rec := range w.records {
		for _, values := range rows(rec) {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}

	_ = f.SetColWidth(w.sheet, "A", "D", 12)
	_ = f.SetColWidth(w.sheet, "F", "F", 60)
	_ = f.SetColWidth(w.sheet, "I", "I", 40)

	if _, err := f.WriteTo(w.w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	w.records = nil
	return nil
}

// Close flushes the writer.
func (w *XLSXWriter) Close() error {
	return w.Flush()
}

func rows(rec Record) [][]any {
	if len(rec.Slots) == 0 {
		return [][]any{{rec.Date, rec.RestaurantName, "", "", "", "", rec.Status, "", rec.Error}}
	}

	out := make([][]any, 0, len(rec.Slots))
	for _, s := range rec.Slots {
		var price any = ""
		if s.Price > 0 {
			price = s.Price
		}
		posted := ""
		if s.Posted {
			posted = "Y"
		}
		note := s.Error
		if note == "" {
			note = s.Skipped
		}
		out = append(out, []any{
			rec.Date, rec.RestaurantName, s.Label, s.TimeSlot, price,
			strings.Join(s.Items, ", "), s.Status, posted, note,
		})
	}
	return out
}
