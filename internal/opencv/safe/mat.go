package safe

import (
	"fmt"
	"image"
	"runtime"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat and guards it against use after Close. It is the
// pixel buffer every processing stage accepts and returns.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	id      uint64
}

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat), nil
}

// NewMatFromMat deep-copies srcMat; the caller keeps ownership of srcMat.
func NewMatFromMat(srcMat gocv.Mat) (*Mat, error) {
	if srcMat.Empty() {
		return nil, fmt.Errorf("source Mat is empty")
	}

	if srcMat.Rows() <= 0 || srcMat.Cols() <= 0 {
		return nil, fmt.Errorf("source Mat has invalid dimensions: %dx%d", srcMat.Cols(), srcMat.Rows())
	}

	clonedMat := srcMat.Clone()
	if clonedMat.Empty() {
		clonedMat.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}

	return wrap(clonedMat), nil
}

// Adopt takes ownership of mat without copying it. mat must not be used or
// closed by the caller afterwards.
func Adopt(mat gocv.Mat) (*Mat, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("adopted Mat is empty")
	}
	return wrap(mat), nil
}

func wrap(mat gocv.Mat) *Mat {
	sm := &Mat{
		mat:     mat,
		isValid: 1,
		id:      atomic.AddUint64(&nextMatID, 1),
	}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return sm != nil && atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	if !sm.IsValid() {
		return true
	}
	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Width() int  { return sm.Cols() }
func (sm *Mat) Height() int { return sm.Rows() }

func (sm *Mat) Bounds() image.Rectangle {
	return image.Rect(0, 0, sm.Cols(), sm.Rows())
}

func (sm *Mat) Channels() int {
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	return sm.mat.Type()
}

func (sm *Mat) Clone() (*Mat, error) {
	if !sm.IsValid() {
		return nil, fmt.Errorf("cannot clone invalid Mat")
	}

	if sm.mat.Empty() {
		return nil, fmt.Errorf("cannot clone empty Mat")
	}

	return NewMatFromMat(sm.mat)
}

// PixelAt returns the channel values of the pixel at column x, row y.
func (sm *Mat) PixelAt(x, y int) ([]uint8, error) {
	if !sm.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(y, x, sm.mat.Rows(), sm.mat.Cols(), "PixelAt"); err != nil {
		return nil, err
	}

	channels := sm.mat.Channels()
	px := make([]uint8, channels)
	if channels == 1 {
		px[0] = sm.mat.GetUCharAt(y, x)
		return px, nil
	}
	for ch := 0; ch < channels; ch++ {
		px[ch] = sm.mat.GetUCharAt3(y, x, ch)
	}
	return px, nil
}

// Row returns a copy of row y as interleaved channel bytes.
func (sm *Mat) Row(y int) ([]uint8, error) {
	if !sm.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}

	if y < 0 || y >= sm.mat.Rows() {
		return nil, fmt.Errorf("row %d out of bounds [0, %d)", y, sm.mat.Rows())
	}

	row := sm.mat.RowRange(y, y+1)
	defer row.Close()
	return row.ToBytes(), nil
}

// Bytes returns a copy of the pixel data in row-major order.
func (sm *Mat) Bytes() []byte {
	if !sm.IsValid() {
		return nil
	}
	return sm.mat.ToBytes()
}

// Region copies the pixels inside r into a new Mat.
func (sm *Mat) Region(r image.Rectangle) (*Mat, error) {
	if !sm.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}

	if r.Empty() || !r.In(sm.Bounds()) {
		return nil, fmt.Errorf("region %v outside Mat bounds %v", r, sm.Bounds())
	}

	view := sm.mat.Region(r)
	defer view.Close()
	return NewMatFromMat(view)
}

// GetMat exposes the underlying Mat for gocv calls. The returned value is
// only valid until Close.
func (sm *Mat) GetMat() gocv.Mat {
	return sm.mat
}

func (sm *Mat) ID() uint64 {
	return sm.id
}

func (sm *Mat) Close() {
	if sm == nil {
		return
	}
	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		sm.mat.Close()
		runtime.SetFinalizer(sm, nil)
	}
}

// finalize is the GC fallback when Close was never called.
func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
