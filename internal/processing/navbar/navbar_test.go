package navbar

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"screencrop/internal/config"
	"screencrop/internal/logger"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func newCanvas(t *testing.T, width, height int, luma float64) *safe.Mat {
	t.Helper()
	raw := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(luma, luma, luma, 0), height, width, gocv.MatTypeCV8UC3)
	m, err := safe.Adopt(raw)
	if err != nil {
		t.Fatalf("canvas: %v", err)
	}
	return m
}

func fill(m *safe.Mat, r image.Rectangle, c color.RGBA) {
	mat := m.GetMat()
	gocv.Rectangle(&mat, r, c, -1)
}

// phoneScreenshot draws a 200x400 mid-gray screen whose bottom 20 rows are
// black and hold the given number of 12x12 white buttons.
func phoneScreenshot(t *testing.T, buttons int) *safe.Mat {
	t.Helper()
	img := newCanvas(t, 200, 400, 128)
	fill(img, image.Rect(0, 380, 200, 400), black)

	xs := map[int][]int{
		0: {},
		1: {94},
		2: {30, 158},
		3: {30, 94, 158},
		4: {20, 70, 120, 170},
	}[buttons]
	for _, x := range xs {
		fill(img, image.Rect(x, 388, x+12, 400), white)
	}
	return img
}

func testConfig() config.CropConfig {
	cfg := config.Default()
	cfg.MinButtonArea = 100
	return cfg
}

func TestSummarizeRow_DarkRules(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name string
		row  []uint8
		want bool
	}{
		{"all black", bytes.Repeat([]byte{0}, 100), true},
		{"mostly dark with icons", append(bytes.Repeat([]byte{5}, 80), bytes.Repeat([]byte{255}, 20)...), true},
		{"bright", bytes.Repeat([]byte{128}, 100), false},
		{"half dark half bright", append(bytes.Repeat([]byte{0}, 50), bytes.Repeat([]byte{200}, 50)...), false},
		// 50% dark pixels is below the ratio but the mean (20) is under 32*0.8
		{"dim noise", append(bytes.Repeat([]byte{0}, 50), bytes.Repeat([]byte{40}, 50)...), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := summarizeRow(tt.row, cfg.DarkThreshold)
			if got := s.isDark(cfg); got != tt.want {
				t.Errorf("isDark = %v, want %v (dark=%d mean=%.1f)", got, tt.want, s.darkPixels, s.mean())
			}
		})
	}
}

func TestCountButtons(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name    string
		rects   []image.Rectangle
		minArea float64
		want    int
	}{
		{"empty strip", nil, 100, 0},
		{"gesture pill", []image.Rectangle{image.Rect(70, 8, 130, 14)}, 100, 1},
		{"three buttons", []image.Rectangle{image.Rect(20, 4, 32, 16), image.Rect(94, 4, 106, 16), image.Rect(168, 4, 180, 16)}, 100, 3},
		{"specks below min area", []image.Rectangle{image.Rect(20, 4, 24, 8), image.Rect(94, 4, 98, 8)}, 100, 0},
		{"touching the edge", []image.Rectangle{image.Rect(0, 8, 12, 20), image.Rect(188, 8, 200, 20)}, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strip := newCanvas(t, 200, 20, 0)
			defer strip.Close()
			for _, r := range tt.rects {
				fill(strip, r, white)
			}

			got, err := CountButtons(strip, 200, tt.minArea)
			if err != nil {
				t.Fatalf("CountButtons() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountButtons() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetectAndStrip_AcceptedCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	for _, buttons := range []int{1, 3, 4} {
		img := phoneScreenshot(t, buttons)

		out, outcome, err := NewDetector(nil).DetectAndStrip(img, testConfig())
		if err != nil {
			t.Fatalf("%d buttons: DetectAndStrip() error = %v", buttons, err)
		}

		if !outcome.Detected {
			t.Errorf("%d buttons: outcome = %v, want detected", buttons, outcome)
		}
		if outcome.CutRow != 380 || outcome.ButtonCount != buttons {
			t.Errorf("%d buttons: outcome = %+v, want cut_row 380", buttons, outcome)
		}
		if out.Width() != 200 || out.Height() != 380 {
			t.Errorf("%d buttons: size = %dx%d, want 200x380", buttons, out.Width(), out.Height())
		}

		out.Close()
		img.Close()
	}
}

func TestDetectAndStrip_RejectedCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	for _, buttons := range []int{0, 2} {
		img := phoneScreenshot(t, buttons)
		rec := logger.NewRecorder()

		out, outcome, err := NewDetector(rec).DetectAndStrip(img, testConfig())
		if err != nil {
			t.Fatalf("%d buttons: DetectAndStrip() error = %v", buttons, err)
		}

		if outcome.Detected || outcome.Reason != ReasonButtonCount {
			t.Errorf("%d buttons: outcome = %+v, want button_count rejection", buttons, outcome)
		}
		if !bytes.Equal(out.Bytes(), img.Bytes()) || out.Height() != 400 {
			t.Errorf("%d buttons: image changed on rejection", buttons)
		}
		if out.ID() == img.ID() {
			t.Errorf("%d buttons: returned the input Mat instead of a copy", buttons)
		}

		infos := rec.AtLevel(logger.InfoLevel)
		if len(infos) != 1 || infos[0].Fields["check"] != "button_count" {
			t.Errorf("%d buttons: diagnostics = %+v, want one button_count rejection", buttons, infos)
		}

		out.Close()
		img.Close()
	}
}

func TestDetect_BrightnessRejection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// 20 rows at luma 30: every row is dark (30 <= 32) but a wide white
	// pill pushes the band mean above 32*1.2
	img := newCanvas(t, 200, 400, 128)
	defer img.Close()
	fill(img, image.Rect(0, 380, 200, 400), color.RGBA{R: 30, G: 30, B: 30, A: 255})
	fill(img, image.Rect(10, 392, 60, 400), white)

	rec := logger.NewRecorder()
	outcome, err := NewDetector(rec).Detect(img, testConfig())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if outcome.Detected || outcome.Reason != ReasonBrightness {
		t.Errorf("outcome = %+v, want brightness rejection", outcome)
	}
	if outcome.BarBrightness <= float64(testConfig().DarkThreshold)*bandBrightnessSlack {
		t.Errorf("BarBrightness = %.2f, want above limit", outcome.BarBrightness)
	}

	infos := rec.AtLevel(logger.InfoLevel)
	if len(infos) != 1 || infos[0].Fields["check"] != "brightness" {
		t.Errorf("diagnostics = %+v, want one brightness rejection", infos)
	}
}

func TestDetect_NoCandidate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name  string
		paint func(*safe.Mat)
	}{
		{"bright bottom row", func(m *safe.Mat) {
			fill(m, image.Rect(0, 380, 200, 399), black)
		}},
		{"band too short", func(m *safe.Mat) {
			fill(m, image.Rect(0, 395, 200, 400), black)
		}},
		{"no dark rows", func(m *safe.Mat) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newCanvas(t, 200, 400, 128)
			defer img.Close()
			tt.paint(img)

			outcome, err := NewDetector(nil).Detect(img, testConfig())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if outcome.Detected || outcome.Reason != ReasonNoCandidate {
				t.Errorf("outcome = %+v, want no_candidate", outcome)
			}
		})
	}
}

func TestDetect_WholeWindowDark(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// the dark area is taller than the 48-row window; the cut lands on the
	// window top
	img := newCanvas(t, 200, 400, 128)
	defer img.Close()
	fill(img, image.Rect(0, 300, 200, 400), black)
	fill(img, image.Rect(94, 380, 106, 392), white)

	outcome, err := NewDetector(nil).Detect(img, testConfig())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !outcome.Detected || outcome.CutRow != 352 {
		t.Errorf("outcome = %+v, want detected at row 352", outcome)
	}
}

func TestDetectAndStrip_Degenerate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	img := newCanvas(t, 100, 100, 0)
	defer img.Close()
	fill(img, image.Rect(44, 80, 56, 92), white)

	cfg := testConfig()
	cfg.MaxBarHeightRatio = 1.0

	rec := logger.NewRecorder()
	out, outcome, err := NewDetector(rec).DetectAndStrip(img, cfg)
	if err != nil {
		t.Fatalf("DetectAndStrip() error = %v", err)
	}
	defer out.Close()

	if outcome.Detected || outcome.Reason != ReasonDegenerate {
		t.Errorf("outcome = %+v, want degenerate", outcome)
	}
	if out.Height() != 100 {
		t.Errorf("height = %d, want 100", out.Height())
	}
	if errs := rec.AtLevel(logger.ErrorLevel); len(errs) != 1 {
		t.Errorf("error diagnostics = %d, want 1", len(errs))
	}
}

func TestDetect_InvalidInput(t *testing.T) {
	if _, err := NewDetector(nil).Detect(nil, testConfig()); err == nil {
		t.Error("Detect(nil) expected error")
	}
}
