package debug

import (
	"image"

	"screencrop/internal/opencv/safe"
	"screencrop/internal/processing/navbar"
)

// ArtifactWriter receives rendered debug images. The image is only valid for
// the duration of the call; implementations that keep it must clone it.
type ArtifactWriter interface {
	WriteArtifact(name string, img *safe.Mat) error
}

// Frame is everything the renderer needs from one pipeline run. Rectangles
// are in the coordinates of Original.
type Frame struct {
	Name     string
	Original *safe.Mat
	Cropped  *safe.Mat
	Outcome  navbar.Outcome
	// ContentRect is the area kept by the content mask. It is empty when the
	// mask found nothing and the image was passed through.
	ContentRect image.Rectangle
}

// NavRect is the area the navigation bar stage kept: everything above the
// cut when a bar was found, the full frame otherwise.
func (f Frame) NavRect() image.Rectangle {
	bounds := f.Original.Bounds()
	if f.Outcome.Detected {
		bounds.Max.Y = f.Outcome.CutRow
	}
	return bounds
}
