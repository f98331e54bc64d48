package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter buffers records and writes them as one YAML document.
type YAMLWriter struct {
	w       *bufio.Writer
	records []Record
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers a record.
func (w *YAMLWriter) Write(rec Record) error {
	w.records = append(w.records, rec)
	return nil
}

// WriteAll buffers records.
func (w *YAMLWriter) WriteAll(recs []Record) error {
	w.records = append(w.records, recs...)
	return nil
}

// Flush writes and clears the buffered records.
func (w *YAMLWriter) Flush() error {
	if len(w.records) == 0 {
		return w.w.Flush()
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)

	var v any = w.records
	if len(w.records) == 1 {
		v = w.records[0]
	}
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	w.records = nil
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
