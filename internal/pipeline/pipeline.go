// Package pipeline composes navigation bar removal, content masking and
// debug rendering into the two public crop operations, and holds the file
// loader and saver used at the command line boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"screencrop/internal/config"
	"screencrop/internal/debug"
	"screencrop/internal/logger"
	"screencrop/internal/opencv/safe"
	"screencrop/internal/processing/navbar"
	"screencrop/internal/processing/region"
)

const component = "Pipeline"

// ErrDegenerateCrop is reported when the bottom crop would leave no rows.
var ErrDegenerateCrop = errors.New("bottom crop would remove the entire image")

// Result is the output of one crop. Image is owned by the caller.
type Result struct {
	Image   *safe.Mat
	Outcome navbar.Outcome
	// ContentRect is the kept content area in input coordinates. It is empty
	// when NoContent is set.
	ContentRect image.Rectangle
	// NoContent reports that the mask found nothing and the image was passed
	// through.
	NoContent bool
}

func (r *Result) Close() {
	if r != nil {
		r.Image.Close()
	}
}

// Pipeline is stateless between calls and safe for concurrent use.
type Pipeline struct {
	logger   logger.Logger
	detector *navbar.Detector
	renderer *debug.Renderer
	timer    TimingTracker
}

type Option func(*Pipeline)

// WithTimingTracker records the duration of each stage in t.
func WithTimingTracker(t TimingTracker) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.timer = t
		}
	}
}

func New(log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	p := &Pipeline{
		logger:   log,
		detector: navbar.NewDetector(log),
		renderer: debug.NewRenderer(log),
		timer:    noopTimer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Crop applies the optional bottom crop and then trims img to its content.
func (p *Pipeline) Crop(img *safe.Mat, cfg config.CropConfig) (*Result, error) {
	if err := p.validate(img, cfg); err != nil {
		return nil, err
	}

	ctx := p.timer.StartTiming(context.Background(), "crop")
	defer p.timer.EndTiming(ctx)

	working := img
	if keep, ok := p.bottomCropRows(img, cfg); ok {
		trimmed, err := img.Region(image.Rect(0, 0, img.Width(), keep))
		if err != nil {
			return nil, fmt.Errorf("bottom crop failed: %w", err)
		}
		defer trimmed.Close()
		working = trimmed
	}

	return p.cropContent(ctx, working, cfg, navbar.Outcome{})
}

// CropWithNavRemoval strips a detected navigation bar, trims the rest to its
// content and, when sink is not nil, renders a debug artifact into it.
// Rendering failures are logged and never affect the result.
func (p *Pipeline) CropWithNavRemoval(img *safe.Mat, cfg config.CropConfig, sink debug.ArtifactWriter) (*Result, error) {
	return p.CropWithNavRemovalNamed(img, cfg, sink, "")
}

// CropWithNavRemovalNamed is CropWithNavRemoval with an artifact name for
// the sink.
func (p *Pipeline) CropWithNavRemovalNamed(img *safe.Mat, cfg config.CropConfig, sink debug.ArtifactWriter, name string) (*Result, error) {
	if err := p.validate(img, cfg); err != nil {
		return nil, err
	}

	ctx := p.timer.StartTiming(context.Background(), "crop_with_nav_removal")
	defer p.timer.EndTiming(ctx)

	navCtx := p.timer.StartTiming(ctx, "detect_navigation_bar")
	stripped, outcome, err := p.detector.DetectAndStrip(img, cfg)
	p.timer.EndTiming(navCtx)
	if err != nil {
		return nil, fmt.Errorf("navigation bar detection failed: %w", err)
	}
	defer stripped.Close()

	result, err := p.cropContent(ctx, stripped, cfg, outcome)
	if err != nil {
		return nil, err
	}

	if sink != nil {
		renderCtx := p.timer.StartTiming(ctx, "render_debug")
		frame := debug.Frame{
			Name:        name,
			Original:    img,
			Cropped:     result.Image,
			Outcome:     outcome,
			ContentRect: result.ContentRect,
		}
		if err := p.renderer.Render(frame, cfg.Debug, sink); err != nil {
			p.logger.Error(component, fmt.Errorf("debug render failed: %w", err), map[string]interface{}{
				"name": name,
			})
		}
		p.timer.EndTiming(renderCtx)
	}

	return result, nil
}

func (p *Pipeline) validate(img *safe.Mat, cfg config.CropConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return safe.ValidateColorImage(img, "Crop")
}

// bottomCropRows returns how many top rows survive the configured bottom
// crop. ok is false when no crop applies.
func (p *Pipeline) bottomCropRows(img *safe.Mat, cfg config.CropConfig) (keep int, ok bool) {
	if cfg.CropBottomPercent == nil || *cfg.CropBottomPercent == 0 {
		return 0, false
	}

	height := img.Height()
	removed := int(float64(height) * *cfg.CropBottomPercent / 100)
	keep = height - removed
	if keep <= 0 {
		p.logger.Error(component, ErrDegenerateCrop, map[string]interface{}{
			"crop_bottom_percent": *cfg.CropBottomPercent,
			"height":              height,
		})
		return 0, false
	}
	return keep, true
}

// cropContent masks img and copies out the content. img is not consumed.
func (p *Pipeline) cropContent(ctx context.Context, img *safe.Mat, cfg config.CropConfig, outcome navbar.Outcome) (*Result, error) {
	maskCtx := p.timer.StartTiming(ctx, "crop_to_content")
	defer p.timer.EndTiming(maskCtx)

	mask, err := region.BuildMask(img, region.MaskOptions{
		Threshold:       cfg.Threshold,
		MinAreaFraction: cfg.MinAreaFraction,
	})
	if errors.Is(err, region.ErrNoContent) {
		p.logger.Warning(component, "no content found, image passed through", map[string]interface{}{
			"threshold": cfg.Threshold,
			"width":     img.Width(),
			"height":    img.Height(),
		})
		out, err := img.Clone()
		if err != nil {
			return nil, fmt.Errorf("copy input failed: %w", err)
		}
		return &Result{Image: out, Outcome: outcome, NoContent: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("build content mask failed: %w", err)
	}
	defer mask.Close()

	out, rect, err := region.CropToMask(img, mask.Mask)
	if err != nil {
		return nil, fmt.Errorf("crop to content failed: %w", err)
	}

	p.logger.Debug(component, "content cropped", map[string]interface{}{
		"contours": mask.Contours,
		"dropped":  mask.Dropped,
		"rect":     rect.String(),
	})

	return &Result{Image: out, Outcome: outcome, ContentRect: rect}, nil
}
