// Package region separates screenshot content from a black letterbox
// background: it builds a filled content mask and crops an image to it.
package region

import (
	"errors"
	"fmt"
	"image/color"

	"screencrop/internal/opencv/conversion"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrNoContent means thresholding left no contour to keep. Callers should
// pass the source image through instead of cropping.
var ErrNoContent = errors.New("no content contours found")

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

type MaskOptions struct {
	// Threshold is the luma cutoff; brighter pixels are content.
	Threshold int
	// MinAreaFraction drops contours at or below this share of the image
	// area. Zero keeps every contour.
	MinAreaFraction float64
}

// MaskResult is a filled binary mask and how many contours went into it.
type MaskResult struct {
	Mask     *safe.Mat
	Contours int
	Dropped  int
}

func (r *MaskResult) Close() {
	if r != nil {
		r.Mask.Close()
	}
}

// BuildMask converts img to luma, binarizes it at opts.Threshold, finds the
// external contours and fills each one solid into a fresh mask. Holes inside
// a shape are ignored. It returns ErrNoContent when nothing survives.
func BuildMask(img *safe.Mat, opts MaskOptions) (*MaskResult, error) {
	if err := safe.ValidateColorImage(img, "BuildMask"); err != nil {
		return nil, err
	}

	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return nil, fmt.Errorf("grayscale conversion failed: %w", err)
	}
	defer gray.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray.GetMat(), &binary, float32(opts.Threshold), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := opts.MinAreaFraction * float64(img.Width()*img.Height())

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	result := &MaskResult{}

	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if opts.MinAreaFraction > 0 && gocv.ContourArea(c) <= minArea {
			result.Dropped++
			continue
		}

		gocv.DrawContours(&mask, contours, i, white, -1)
		result.Contours++
	}

	if result.Contours == 0 {
		mask.Close()
		return nil, ErrNoContent
	}

	result.Mask, err = safe.Adopt(mask)
	if err != nil {
		return nil, err
	}
	return result, nil
}
