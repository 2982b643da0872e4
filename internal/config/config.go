package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid crop configuration")

const (
	LayoutOverlay     = "overlay"
	LayoutSideBySide  = "side_by_side"
	DefaultMaxHeight  = 0
	DefaultMaskCutoff = 10
)

// CropConfig holds every tunable of the extraction pipeline. It is passed by
// value into each call; nothing in the processing packages keeps a copy.
type CropConfig struct {
	// Threshold is the luma cutoff used to build the content mask. Pixels
	// strictly brighter than it are content.
	Threshold int `yaml:"threshold"`
	// MinAreaFraction drops mask contours whose area is at or below this
	// fraction of the image area. Zero disables the filter.
	MinAreaFraction float64 `yaml:"min_area_fraction"`
	// CropBottomPercent removes this share of rows from the bottom before
	// masking in Crop. Nil disables it.
	CropBottomPercent *float64 `yaml:"crop_bottom_percent"`

	// DarkThreshold is the luma at or below which a pixel counts as dark.
	DarkThreshold int `yaml:"dark_threshold"`
	// MinBarHeightRatio is the shortest accepted bar, as a fraction of image height.
	MinBarHeightRatio float64 `yaml:"min_bar_height_ratio"`
	// MaxBarHeightRatio bounds the analysed window at the bottom of the image.
	MaxBarHeightRatio float64 `yaml:"max_bar_height_ratio"`
	// DarkRowRatioThreshold is the share of dark pixels that makes a row dark.
	DarkRowRatioThreshold float64 `yaml:"dark_row_ratio_threshold"`
	// WhiteThreshold binarizes the bar when counting buttons.
	WhiteThreshold int `yaml:"white_threshold"`
	// MinButtonArea is a raw contour area in pixels². Observed working values
	// range from 290 to 444 depending on device density.
	MinButtonArea float64 `yaml:"min_button_area"`
	// AcceptedButtonCounts lists the blob counts that make a dark band a bar:
	// gesture pill = 1, classic navigation = 3, one 4-button variant.
	AcceptedButtonCounts []int `yaml:"accepted_button_counts"`

	Debug DebugConfig `yaml:"debug"`
}

type DebugConfig struct {
	// Layout is LayoutOverlay or LayoutSideBySide.
	Layout string `yaml:"layout"`
	// MaxHeight scales artifacts down to at most this many rows. Zero keeps size.
	MaxHeight int `yaml:"max_height"`
}

func Default() CropConfig {
	return CropConfig{
		Threshold:             DefaultMaskCutoff,
		MinAreaFraction:       0,
		DarkThreshold:         32,
		MinBarHeightRatio:     0.03,
		MaxBarHeightRatio:     0.12,
		DarkRowRatioThreshold: 0.7,
		WhiteThreshold:        200,
		MinButtonArea:         290,
		AcceptedButtonCounts:  []int{1, 3, 4},
		Debug: DebugConfig{
			Layout:    LayoutOverlay,
			MaxHeight: DefaultMaxHeight,
		},
	}
}

// Validate checks ranges and returns an error wrapping ErrInvalidConfig.
func (c CropConfig) Validate() error {
	if err := checkLuma("threshold", c.Threshold); err != nil {
		return err
	}
	if err := checkLuma("dark_threshold", c.DarkThreshold); err != nil {
		return err
	}
	if err := checkLuma("white_threshold", c.WhiteThreshold); err != nil {
		return err
	}
	if err := checkRatio("min_area_fraction", c.MinAreaFraction); err != nil {
		return err
	}
	if err := checkRatio("min_bar_height_ratio", c.MinBarHeightRatio); err != nil {
		return err
	}
	if err := checkRatio("max_bar_height_ratio", c.MaxBarHeightRatio); err != nil {
		return err
	}
	if err := checkRatio("dark_row_ratio_threshold", c.DarkRowRatioThreshold); err != nil {
		return err
	}
	if c.MinBarHeightRatio > c.MaxBarHeightRatio {
		return fmt.Errorf("%w: min_bar_height_ratio %.3f exceeds max_bar_height_ratio %.3f",
			ErrInvalidConfig, c.MinBarHeightRatio, c.MaxBarHeightRatio)
	}
	if c.MinButtonArea <= 0 {
		return fmt.Errorf("%w: min_button_area must be positive, got %v", ErrInvalidConfig, c.MinButtonArea)
	}
	if len(c.AcceptedButtonCounts) == 0 {
		return fmt.Errorf("%w: accepted_button_counts is empty", ErrInvalidConfig)
	}
	if p := c.CropBottomPercent; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%w: crop_bottom_percent %.2f outside [0, 100]", ErrInvalidConfig, *p)
	}
	switch c.Debug.Layout {
	case LayoutOverlay, LayoutSideBySide:
	default:
		return fmt.Errorf("%w: unknown debug layout %q", ErrInvalidConfig, c.Debug.Layout)
	}
	if c.Debug.MaxHeight < 0 {
		return fmt.Errorf("%w: debug max_height must not be negative", ErrInvalidConfig)
	}
	return nil
}

// AcceptsButtonCount reports whether n is one of the accepted blob counts.
func (c CropConfig) AcceptsButtonCount(n int) bool {
	for _, want := range c.AcceptedButtonCounts {
		if n == want {
			return true
		}
	}
	return false
}

// Load reads a YAML file and overlays it on Default. Keys missing from the
// file keep their default values.
func Load(path string) (CropConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func checkLuma(name string, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: %s %d outside [0, 255]", ErrInvalidConfig, name, v)
	}
	return nil
}

func checkRatio(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %.3f outside [0, 1]", ErrInvalidConfig, name, v)
	}
	return nil
}
