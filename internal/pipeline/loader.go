package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"screencrop/internal/logger"
	"screencrop/internal/opencv/conversion"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecodeFailed marks input that neither OpenCV nor the Go decoders accept.
var ErrDecodeFailed = errors.New("image decode failed")

// SupportedExtensions lists the file types the loader picks up from a directory.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif"}

func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

type ImageLoader struct {
	logger        logger.Logger
	timingTracker TimingTracker
}

func NewImageLoader(log logger.Logger, timer TimingTracker) *ImageLoader {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if timer == nil {
		timer = noopTimer{}
	}
	return &ImageLoader{logger: log, timingTracker: timer}
}

func (l *ImageLoader) LoadFile(path string) (*safe.Mat, error) {
	l.logger.Debug("ImageLoader", "loading image", map[string]interface{}{
		"path":      path,
		"extension": strings.ToLower(filepath.Ext(path)),
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return l.LoadBytes(data)
}

// LoadBytes decodes data into a 3-channel BGR Mat.
func (l *ImageLoader) LoadBytes(data []byte) (*safe.Mat, error) {
	ctx := l.timingTracker.StartTiming(context.Background(), "load_image")
	defer l.timingTracker.EndTiming(ctx)

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecodeFailed)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		loaded, err := safe.Adopt(mat)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		l.logLoaded(loaded, "opencv")
		return loaded, nil
	}
	mat.Close()

	// OpenCV builds without webp or gif support still load those through
	// the Go decoders.
	img, format, stdErr := image.Decode(bytes.NewReader(data))
	if stdErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, stdErr)
	}

	loaded, err := conversion.ImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	l.logLoaded(loaded, format)
	return loaded, nil
}

func (l *ImageLoader) logLoaded(m *safe.Mat, decoder string) {
	l.logger.Info("ImageLoader", "image loaded successfully", map[string]interface{}{
		"width":    m.Width(),
		"height":   m.Height(),
		"channels": m.Channels(),
		"decoder":  decoder,
	})
}
