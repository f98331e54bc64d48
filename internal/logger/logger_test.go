package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

type restaurantName string

func (r restaurantName) String() string { return string(r) }

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		emit    func()
		msg     string
		visible bool
	}{
		{"info at default", Options{}, func() { Info("menu fetched") }, "menu fetched", true},
		{"debug hidden at default", Options{}, func() { Debug("grid flattened") }, "grid flattened", false},
		{"debug shown with debug", Options{Debug: true}, func() { Debug("grid flattened") }, "grid flattened", true},
		{"warn at default", Options{}, func() { Warn("slot failed") }, "slot failed", true},
		{"warn hidden when quiet", Options{Quiet: true}, func() { Warn("slot failed") }, "slot failed", false},
		{"error shown when quiet", Options{Quiet: true}, func() { Error("post failed") }, "post failed", true},
		{"quiet overrides debug", Options{Quiet: true, Debug: true}, func() { Debug("noise") }, "noise", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := tt.opts
			opts.Output = buf
			Init(opts)
			defer Init(Options{})

			tt.emit()
			if got := strings.Contains(buf.String(), tt.msg); got != tt.visible {
				t.Errorf("visible = %v, want %v; output %q", got, tt.visible, buf.String())
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer Init(Options{})

	Info("normalized", "slots", 3)

	out := buf.String()
	for _, want := range []string{`"msg":"normalized"`, `"slots":3`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %q", want, out)
		}
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer Init(Options{})

	ctx := context.Background()
	DebugContext(ctx, "debug ctx")
	InfoContext(ctx, "info ctx")
	WarnContext(ctx, "warn ctx")
	ErrorContext(ctx, "error ctx")

	for _, msg := range []string{"debug ctx", "info ctx", "warn ctx", "error ctx"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("missing %q", msg)
		}
	}
}

func TestForMenu(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer Init(Options{})

	ForMenu(restaurantName("DODAM"), "20240325").Info("posted")

	out := buf.String()
	if !strings.Contains(out, "restaurant=DODAM") || !strings.Contains(out, "date=20240325") {
		t.Errorf("expected menu attributes, got %q", out)
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer Init(Options{})

	With("provider", "openai").Info("llm call")
	if !strings.Contains(buf.String(), "provider=openai") {
		t.Errorf("expected attribute, got %q", buf.String())
	}
}

func TestCustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Logger: slog.New(slog.NewTextHandler(buf, nil))})
	defer Init(Options{})

	Info("from custom")
	if !strings.Contains(buf.String(), "from custom") {
		t.Error("custom logger should receive messages")
	}
}
