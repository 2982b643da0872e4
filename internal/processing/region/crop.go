package region

import (
	"errors"
	"fmt"
	"image"

	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrEmptyCrop is returned when the mask has no foreground pixel, so the
// crop would have zero area.
var ErrEmptyCrop = errors.New("mask has no foreground to crop to")

// BoundingRect returns the smallest rectangle enclosing every foreground
// pixel of mask. It is the union over all blobs, not the largest one.
func BoundingRect(mask *safe.Mat) (image.Rectangle, error) {
	if err := safe.ValidateMatForOperation(mask, "BoundingRect"); err != nil {
		return image.Rectangle{}, err
	}

	contours := gocv.FindContours(mask.GetMat(), gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var bounds image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		if bounds.Empty() {
			bounds = rect
			continue
		}
		bounds = bounds.Union(rect)
	}

	return bounds.Intersect(mask.Bounds()), nil
}

// CropToMask zeroes every pixel of img outside mask and returns a new Mat
// holding the bounding rectangle of the mask, together with that rectangle.
func CropToMask(img, mask *safe.Mat) (*safe.Mat, image.Rectangle, error) {
	if err := safe.ValidateColorImage(img, "CropToMask"); err != nil {
		return nil, image.Rectangle{}, err
	}
	if err := safe.ValidateMask(img, mask, "CropToMask"); err != nil {
		return nil, image.Rectangle{}, err
	}

	rect, err := BoundingRect(mask)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("bounding rect failed: %w", err)
	}
	if rect.Empty() {
		return nil, image.Rectangle{}, ErrEmptyCrop
	}

	masked := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), img.Type())
	defer masked.Close()
	gocv.BitwiseAndWithMask(img.GetMat(), img.GetMat(), &masked, mask.GetMat())

	view := masked.Region(rect)
	defer view.Close()

	out, err := safe.NewMatFromMat(view)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("crop copy failed: %w", err)
	}
	return out, rect, nil
}
