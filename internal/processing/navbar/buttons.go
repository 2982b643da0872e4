package navbar

import (
	"fmt"
	"image/color"

	"screencrop/internal/opencv/conversion"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// CountButtons counts the bright blobs in strip whose contour area is at
// least minArea. A navigation bar shows one pill or three/four icons; page
// content or text usually yields a different count.
func CountButtons(strip *safe.Mat, whiteThreshold int, minArea float64) (int, error) {
	if err := safe.ValidateColorImage(strip, "CountButtons"); err != nil {
		return 0, err
	}

	gray, err := conversion.ConvertToGrayscale(strip)
	if err != nil {
		return 0, fmt.Errorf("grayscale conversion failed: %w", err)
	}
	defer gray.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray.GetMat(), &binary, float32(whiteThreshold), 255, gocv.ThresholdBinary)

	// icons touching the strip edge still need a closed outline
	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(binary, &padded, 1, 1, 1, 1, gocv.BorderConstant, color.RGBA{})

	contours := gocv.FindContours(padded, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	count := 0
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) >= minArea {
			count++
		}
	}
	return count, nil
}
