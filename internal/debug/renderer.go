// Package debug renders diagnostic images of a crop and hands them to an
// ArtifactWriter.
package debug

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"screencrop/internal/config"
	"screencrop/internal/logger"
	"screencrop/internal/opencv/conversion"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const component = "DebugRenderer"

const separatorWidth = 5

var (
	navColor       = color.RGBA{R: 255, A: 255}
	contentColor   = color.RGBA{G: 255, A: 255}
	captionColor   = color.RGBA{R: 255, G: 255, A: 255}
	backdropScalar = gocv.NewScalar(128, 0, 128, 0)
	// BGR order
	separatorScalar = gocv.NewScalar(0, 0, 255, 0)
)

// ErrNoSink is returned by Render when it is given no ArtifactWriter.
// The pipeline only renders when a sink is configured, so this reaches
// direct callers of Render alone.
var ErrNoSink = errors.New("no artifact writer")

type Renderer struct {
	logger logger.Logger
}

func NewRenderer(log logger.Logger) *Renderer {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Renderer{logger: log}
}

// Render draws frame in the configured layout and passes the result to sink.
// frame.Original is never modified. A nil sink fails with ErrNoSink before
// anything is drawn; other errors come from validation, drawing or the sink.
func (r *Renderer) Render(frame Frame, opts config.DebugConfig, sink ArtifactWriter) error {
	if sink == nil {
		return ErrNoSink
	}
	if err := safe.ValidateColorImage(frame.Original, "RenderDebug"); err != nil {
		return err
	}

	canvas, err := r.annotate(frame)
	if err != nil {
		return err
	}
	defer canvas.Close()

	artifact := canvas
	if opts.Layout == config.LayoutSideBySide {
		combined, err := r.sideBySide(canvas, frame.Cropped)
		if err != nil {
			return err
		}
		defer combined.Close()
		artifact = combined
	}

	if opts.MaxHeight > 0 && artifact.Height() > opts.MaxHeight {
		scaled, err := ScaleToHeight(artifact, opts.MaxHeight)
		if err != nil {
			return err
		}
		defer scaled.Close()
		artifact = scaled
	}

	name := frame.Name
	if name == "" {
		name = "debug"
	}
	if err := sink.WriteArtifact(name, artifact); err != nil {
		return fmt.Errorf("write debug artifact failed: %w", err)
	}

	r.logger.Debug(component, "debug artifact written", map[string]interface{}{
		"name":   name,
		"layout": opts.Layout,
		"width":  artifact.Width(),
		"height": artifact.Height(),
	})
	return nil
}

// annotate returns a BGR copy of the original with both crop rectangles and
// the outcome caption drawn on it.
func (r *Renderer) annotate(frame Frame) (*safe.Mat, error) {
	canvas, err := conversion.ToBGR(frame.Original)
	if err != nil {
		return nil, fmt.Errorf("prepare debug canvas failed: %w", err)
	}

	mat := canvas.GetMat()
	thickness := lineThickness(canvas.Height())

	gocv.Rectangle(&mat, inset(frame.NavRect(), thickness), navColor, thickness)
	if !frame.ContentRect.Empty() {
		gocv.Rectangle(&mat, inset(frame.ContentRect, thickness), contentColor, thickness)
	}

	caption := frame.Outcome.String()
	if frame.ContentRect.Empty() {
		caption += "; no content"
	}
	scale := float64(canvas.Height()) / 1000
	if scale < 0.4 {
		scale = 0.4
	}
	gocv.PutText(&mat, caption, image.Pt(thickness*2, int(30*scale)+thickness), gocv.FontHersheySimplex, scale, captionColor, 1)

	return canvas, nil
}

// sideBySide joins left, a red separator and cropped centred on a purple
// backdrop the size of left.
func (r *Renderer) sideBySide(left, cropped *safe.Mat) (*safe.Mat, error) {
	height, width := left.Height(), left.Width()

	backdrop := gocv.NewMatWithSizeFromScalar(backdropScalar, height, width, gocv.MatTypeCV8UC3)
	defer backdrop.Close()

	if cropped.IsValid() && !cropped.Empty() {
		crop, err := conversion.ToBGR(cropped)
		if err != nil {
			return nil, fmt.Errorf("prepare cropped image failed: %w", err)
		}
		defer crop.Close()

		if crop.Width() > width || crop.Height() > height {
			return nil, fmt.Errorf("cropped image %dx%d larger than original %dx%d",
				crop.Width(), crop.Height(), width, height)
		}

		x := (width - crop.Width()) / 2
		y := (height - crop.Height()) / 2
		roi := backdrop.Region(image.Rect(x, y, x+crop.Width(), y+crop.Height()))
		src := crop.GetMat()
		err = src.CopyTo(&roi)
		roi.Close()
		if err != nil {
			return nil, fmt.Errorf("place cropped image failed: %w", err)
		}
	} else {
		r.logger.Warning(component, "no cropped image for side by side layout", nil)
	}

	separator := gocv.NewMatWithSizeFromScalar(separatorScalar, height, separatorWidth, gocv.MatTypeCV8UC3)
	defer separator.Close()

	leftPart := gocv.NewMat()
	defer leftPart.Close()
	gocv.Hconcat(left.GetMat(), separator, &leftPart)

	combined := gocv.NewMat()
	gocv.Hconcat(leftPart, backdrop, &combined)

	return safe.Adopt(combined)
}

// ScaleToHeight resizes src to height rows keeping its aspect ratio.
func ScaleToHeight(src *safe.Mat, height int) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ScaleToHeight"); err != nil {
		return nil, err
	}
	if height <= 0 {
		return nil, fmt.Errorf("invalid target height: %d", height)
	}

	ratio := float64(height) / float64(src.Height())
	width := int(float64(src.Width()) * ratio)
	if width < 1 {
		width = 1
	}

	dst := gocv.NewMat()
	gocv.Resize(src.GetMat(), &dst, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	return safe.Adopt(dst)
}

func lineThickness(height int) int {
	t := height / 300
	if t < 1 {
		return 1
	}
	return t
}

// inset shrinks r so a stroke of the given thickness stays inside it.
func inset(r image.Rectangle, thickness int) image.Rectangle {
	half := thickness / 2
	out := image.Rect(r.Min.X+half, r.Min.Y+half, r.Max.X-half, r.Max.Y-half)
	if out.Dx() < 0 || out.Dy() < 0 {
		return r
	}
	return out
}
