package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetInitializesDefault(t *testing.T) {
	defaultLogger = nil
	if Get() == nil {
		t.Fatal("Get() should lazily initialize the logger")
	}
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", true)
	defer func() { defaultLogger = nil }()

	ctx := ContextWithRun(context.Background(), "run-123")
	InfoContext(ctx, "level done", "level", 2)

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-123"`) {
		t.Errorf("expected run id in output, got %s", out)
	}
	if !strings.Contains(out, `"level":2`) {
		t.Errorf("expected level field in output, got %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", false)
	defer func() { defaultLogger = nil }()

	Info("hidden")
	Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", false)
	defer func() { defaultLogger = nil }()

	WithComponent("integrator").Info("step")
	if !strings.Contains(buf.String(), "component=integrator") {
		t.Errorf("expected component label, got %s", buf.String())
	}
}

func TestProgressThrottles(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewProgress(l, time.Hour)
	for i := 0; i < 100; i++ {
		p.Log("iteration", "i", i)
	}
	if n := strings.Count(buf.String(), "iteration"); n != 1 {
		t.Errorf("logged %d lines, want 1", n)
	}
}
