package safe

import (
	"fmt"

	"gocv.io/x/gocv"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateColorImage accepts the 8-bit BGR and BGRA frames a decoder produces.
func ValidateColorImage(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	switch mat.Type() {
	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4, gocv.MatTypeCV8UC1:
		return nil
	default:
		return fmt.Errorf("unsupported MatType %d for operation: %s", int(mat.Type()), operation)
	}
}

// ValidateMask requires a single-channel 8-bit Mat matching the source size.
func ValidateMask(src, mask *Mat, operation string) error {
	if err := ValidateMatForOperation(mask, operation); err != nil {
		return err
	}

	if mask.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("mask must be 8-bit single channel, got type %d for operation: %s",
			int(mask.Type()), operation)
	}

	if src.Rows() != mask.Rows() || src.Cols() != mask.Cols() {
		return fmt.Errorf("mask size %dx%d does not match image %dx%d for operation: %s",
			mask.Cols(), mask.Rows(), src.Cols(), src.Rows(), operation)
	}

	return nil
}

func ValidateCoordinates(row, col, rows, cols int, operation string) error {
	if row < 0 || row >= rows {
		return fmt.Errorf("row %d out of bounds [0, %d) for operation: %s", row, rows, operation)
	}

	if col < 0 || col >= cols {
		return fmt.Errorf("col %d out of bounds [0, %d) for operation: %s", col, cols, operation)
	}

	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}
