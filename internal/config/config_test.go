package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	for _, k := range []string{"LAYOUT_CONFIG_FILE", "LAYOUT_DIM", "LAYOUT_THETA", "LAYOUT_MAX_ITERATIONS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Dim != 2 {
		t.Fatalf("expected default dim=2, got %d", cfg.Layout.Dim)
	}
	if cfg.Layout.Theta != 0.8 || cfg.Layout.MaxIterations != 500 {
		t.Fatalf("unexpected defaults: theta=%v iterations=%d", cfg.Layout.Theta, cfg.Layout.MaxIterations)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
	if again, _ := Load(); again != cfg {
		t.Error("expected Load to return the cached config")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	body := strings.Join([]string{
		"layout:",
		"  dim: 3",
		"  theta: 0.5",
		"  anti_gravity: 2",
		"sources:",
		"  papers_file: papers.json",
		"interval: 15m",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAYOUT_CONFIG_FILE", path)
	t.Setenv("LAYOUT_THETA", "0.25")
	t.Setenv("LAYOUT_INTERVAL_MIN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Dim != 3 || cfg.Layout.AntiGravity != 2 {
		t.Errorf("file values not applied: %+v", cfg.Layout)
	}
	if cfg.Layout.Theta != 0.25 {
		t.Errorf("env should override file: theta=%v", cfg.Layout.Theta)
	}
	if cfg.Sources.PapersFile != "papers.json" {
		t.Errorf("papers file = %q", cfg.Sources.PapersFile)
	}
	if cfg.LayoutInterval != 15*time.Minute {
		t.Errorf("interval = %v", cfg.LayoutInterval)
	}
	if cfg.Layout.LinkStrength != 1.1 {
		t.Errorf("defaults lost under file overlay: link_strength=%v", cfg.Layout.LinkStrength)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("layout:\n  thetaa: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAYOUT_CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dim", func(c *Config) { c.Layout.Dim = 4 }},
		{"theta", func(c *Config) { c.Layout.Theta = -1 }},
		{"step", func(c *Config) { c.Layout.StepSize = 0 }},
		{"iterations", func(c *Config) { c.Layout.MaxIterations = 0 }},
		{"extent", func(c *Config) { c.Layout.Extent = 0 }},
		{"min reduction", func(c *Config) { c.Layout.MinReduction = 1 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"positions table", func(c *Config) { c.Sources.PositionsTable = "" }},
		{"sentry sample rate", func(c *Config) { c.SentrySampleRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestValidateNamesYAMLKeys(t *testing.T) {
	c := Defaults()
	c.Layout.Dim = 4
	c.Layout.StepSize = -1
	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"layout.dim: failed oneof=2 3, got 4", "layout.step_size: failed gt=0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	if !GetEnvAsBool("X_BOOL", false) {
		t.Error("yes should parse as true")
	}
	if GetEnvAsInt("X_INT", 7) != 7 {
		t.Error("bad int should fall back to default")
	}
	if GetEnvAsDuration("X_DUR", 0) != 90*time.Second {
		t.Error("duration not parsed")
	}
	if GetEnvAsString("X_UNSET_FOR_TEST", "d") != "d" {
		t.Error("unset string should fall back to default")
	}
}
