// Package navbar finds an on-screen navigation bar at the bottom of a
// screenshot and strips it.
//
// Detection is two-staged: a sustained run of dark rows proposes a band,
// then the band must be dark on average and hold a plausible number of
// bright icons before it is cut.
package navbar

import (
	"errors"
	"fmt"
	"image"
	"math"

	"screencrop/internal/config"
	"screencrop/internal/logger"
	"screencrop/internal/opencv/conversion"
	"screencrop/internal/opencv/safe"
)

const component = "NavBarDetector"

const (
	// a row whose mean luma is this close to black is dark even when many
	// pixels sit just above the cutoff
	meanDarkFactor = 0.8
	// slack for compression noise when re-checking the whole band
	bandBrightnessSlack = 1.2
)

// ErrDegenerateCut is reported when the dark run reaches the top of the image.
var ErrDegenerateCut = errors.New("navigation bar cut would remove the entire image")

type Detector struct {
	logger logger.Logger
}

func NewDetector(log logger.Logger) *Detector {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Detector{logger: log}
}

// rowStats is the per-row luma summary the scan works on.
type rowStats struct {
	darkPixels int
	lumaSum    int
	width      int
}

func (s rowStats) mean() float64 {
	return float64(s.lumaSum) / float64(s.width)
}

func (s rowStats) isDark(cfg config.CropConfig) bool {
	ratio := float64(s.darkPixels) / float64(s.width)
	if ratio >= cfg.DarkRowRatioThreshold {
		return true
	}
	return s.mean() <= float64(cfg.DarkThreshold)*meanDarkFactor
}

// DetectAndStrip returns img without its navigation bar when one is found,
// otherwise an unchanged copy. The returned Mat is always new and owned by
// the caller.
func (d *Detector) DetectAndStrip(img *safe.Mat, cfg config.CropConfig) (*safe.Mat, Outcome, error) {
	outcome, err := d.Detect(img, cfg)
	if err != nil {
		return nil, Outcome{}, err
	}

	if !outcome.Detected {
		out, err := img.Clone()
		if err != nil {
			return nil, Outcome{}, fmt.Errorf("copy input failed: %w", err)
		}
		return out, outcome, nil
	}

	out, err := img.Region(image.Rect(0, 0, img.Width(), outcome.CutRow))
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("strip navigation bar failed: %w", err)
	}

	d.logger.Info(component, "navigation bar removed", outcome.Fields())
	return out, outcome, nil
}

// Detect runs the scan and validation without producing an image.
func (d *Detector) Detect(img *safe.Mat, cfg config.CropConfig) (Outcome, error) {
	if err := safe.ValidateColorImage(img, "DetectNavigationBar"); err != nil {
		return Outcome{}, err
	}

	height := img.Height()
	width := img.Width()

	windowRows := int(cfg.MaxBarHeightRatio * float64(height))
	if windowRows > height {
		windowRows = height
	}
	minRun := int(math.Ceil(cfg.MinBarHeightRatio * float64(height)))
	if minRun < 1 {
		minRun = 1
	}
	if windowRows < minRun {
		d.logger.Debug(component, "search window shorter than minimum bar", map[string]interface{}{
			"window_rows": windowRows,
			"min_run":     minRun,
		})
		return NotDetected(ReasonNoCandidate), nil
	}
	windowTop := height - windowRows

	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return Outcome{}, fmt.Errorf("grayscale conversion failed: %w", err)
	}
	defer gray.Close()

	stats := make([]rowStats, windowRows)
	for i := range stats {
		row, err := gray.Row(windowTop + i)
		if err != nil {
			return Outcome{}, fmt.Errorf("read row %d: %w", windowTop+i, err)
		}
		stats[i] = summarizeRow(row, cfg.DarkThreshold)
	}

	run := 0
	for i := windowRows - 1; i >= 0; i-- {
		if !stats[i].isDark(cfg) {
			break
		}
		run++
	}

	if run < minRun {
		d.logger.Debug(component, "no dark band at the bottom", map[string]interface{}{
			"dark_run": run,
			"min_run":  minRun,
		})
		return NotDetected(ReasonNoCandidate), nil
	}

	cutRow := height - run
	if cutRow <= 0 {
		d.logger.Error(component, ErrDegenerateCut, map[string]interface{}{
			"dark_run": run,
			"height":   height,
		})
		return NotDetected(ReasonDegenerate), nil
	}

	band := stats[windowRows-run:]
	var lumaSum, pixels int
	for _, s := range band {
		lumaSum += s.lumaSum
		pixels += s.width
	}
	brightness := float64(lumaSum) / float64(pixels)

	if limit := float64(cfg.DarkThreshold) * bandBrightnessSlack; brightness > limit {
		d.logger.Info(component, "candidate band rejected", map[string]interface{}{
			"check":      "brightness",
			"cut_row":    cutRow,
			"brightness": brightness,
			"limit":      limit,
		})
		return Outcome{CutRow: cutRow, BarBrightness: brightness, Reason: ReasonBrightness}, nil
	}

	strip, err := img.Region(image.Rect(0, cutRow, width, height))
	if err != nil {
		return Outcome{}, fmt.Errorf("extract candidate band failed: %w", err)
	}
	defer strip.Close()

	buttons, err := CountButtons(strip, cfg.WhiteThreshold, cfg.MinButtonArea)
	if err != nil {
		return Outcome{}, fmt.Errorf("count buttons failed: %w", err)
	}

	if !cfg.AcceptsButtonCount(buttons) {
		d.logger.Info(component, "candidate band rejected", map[string]interface{}{
			"check":        "button_count",
			"cut_row":      cutRow,
			"button_count": buttons,
			"accepted":     cfg.AcceptedButtonCounts,
		})
		return Outcome{
			CutRow:        cutRow,
			BarBrightness: brightness,
			ButtonCount:   buttons,
			Reason:        ReasonButtonCount,
		}, nil
	}

	return Outcome{
		Detected:      true,
		CutRow:        cutRow,
		BarBrightness: brightness,
		ButtonCount:   buttons,
	}, nil
}

func summarizeRow(row []uint8, darkThreshold int) rowStats {
	s := rowStats{width: len(row)}
	for _, v := range row {
		s.lumaSum += int(v)
		if int(v) <= darkThreshold {
			s.darkPixels++
		}
	}
	return s
}
