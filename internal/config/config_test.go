package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	over := 150.0

	tests := []struct {
		name   string
		mutate func(*CropConfig)
	}{
		{"threshold above 255", func(c *CropConfig) { c.Threshold = 300 }},
		{"negative dark threshold", func(c *CropConfig) { c.DarkThreshold = -1 }},
		{"white threshold above 255", func(c *CropConfig) { c.WhiteThreshold = 256 }},
		{"ratio above one", func(c *CropConfig) { c.DarkRowRatioThreshold = 1.5 }},
		{"min above max bar", func(c *CropConfig) { c.MinBarHeightRatio = 0.5; c.MaxBarHeightRatio = 0.2 }},
		{"zero button area", func(c *CropConfig) { c.MinButtonArea = 0 }},
		{"no accepted counts", func(c *CropConfig) { c.AcceptedButtonCounts = nil }},
		{"bottom percent above 100", func(c *CropConfig) { c.CropBottomPercent = &over }},
		{"unknown layout", func(c *CropConfig) { c.Debug.Layout = "grid" }},
		{"negative max height", func(c *CropConfig) { c.Debug.MaxHeight = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAcceptsButtonCount(t *testing.T) {
	cfg := Default()
	for n, want := range map[int]bool{0: false, 1: true, 2: false, 3: true, 4: true, 5: false} {
		if got := cfg.AcceptsButtonCount(n); got != want {
			t.Errorf("AcceptsButtonCount(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.yaml")
	content := []byte("dark_threshold: 20\nmin_button_area: 438\ncrop_bottom_percent: 7.5\ndebug:\n  layout: side_by_side\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DarkThreshold != 20 {
		t.Errorf("DarkThreshold = %d, want 20", cfg.DarkThreshold)
	}
	if cfg.MinButtonArea != 438 {
		t.Errorf("MinButtonArea = %v, want 438", cfg.MinButtonArea)
	}
	if cfg.CropBottomPercent == nil || *cfg.CropBottomPercent != 7.5 {
		t.Errorf("CropBottomPercent = %v, want 7.5", cfg.CropBottomPercent)
	}
	if cfg.Debug.Layout != LayoutSideBySide {
		t.Errorf("Debug.Layout = %q, want %q", cfg.Debug.Layout, LayoutSideBySide)
	}
	// untouched keys keep defaults
	if cfg.Threshold != DefaultMaskCutoff {
		t.Errorf("Threshold = %d, want default %d", cfg.Threshold, DefaultMaskCutoff)
	}
	if len(cfg.AcceptedButtonCounts) != 3 {
		t.Errorf("AcceptedButtonCounts = %v, want default", cfg.AcceptedButtonCounts)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("dark_threshold: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(bad yaml) expected error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("white_threshold: 999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load(invalid) = %v, want ErrInvalidConfig", err)
	}
}
