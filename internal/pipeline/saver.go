package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"screencrop/internal/logger"
	"screencrop/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const jpegQuality = 95

type ImageSaver struct {
	logger        logger.Logger
	timingTracker TimingTracker
}

func NewImageSaver(log logger.Logger, timer TimingTracker) *ImageSaver {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if timer == nil {
		timer = noopTimer{}
	}
	return &ImageSaver{logger: log, timingTracker: timer}
}

// encodableExtensions lists the output formats Encode writes natively.
// OpenCV has no GIF encoder.
var encodableExtensions = map[string]gocv.FileExt{
	".jpg":  gocv.JPEGFileExt,
	".jpeg": gocv.JPEGFileExt,
	".png":  gocv.PNGFileExt,
	".webp": gocv.FileExt(".webp"),
	".bmp":  gocv.FileExt(".bmp"),
}

// CanEncode reports whether Encode writes ext in its own format rather than
// falling back to PNG.
func CanEncode(ext string) bool {
	_, ok := encodableExtensions[strings.ToLower(ext)]
	return ok
}

// Encode compresses img in the format named by ext. Extensions CanEncode
// rejects fall back to PNG.
func (s *ImageSaver) Encode(img *safe.Mat, ext string) ([]byte, error) {
	if err := safe.ValidateMatForOperation(img, "Encode"); err != nil {
		return nil, err
	}

	format, ok := encodableExtensions[strings.ToLower(ext)]
	if !ok {
		if ext != "" {
			s.logger.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
				"requested_format": strings.ToUpper(strings.TrimPrefix(ext, ".")),
			})
		}
		format = gocv.PNGFileExt
	}

	var (
		buf *gocv.NativeByteBuffer
		err error
	)
	if format == gocv.JPEGFileExt {
		buf, err = gocv.IMEncodeWithParams(format, img.GetMat(), []int{int(gocv.IMWriteJpegQuality), jpegQuality})
	} else {
		buf, err = gocv.IMEncode(format, img.GetMat())
	}
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// SaveFile encodes img by the extension of path and writes it.
func (s *ImageSaver) SaveFile(path string, img *safe.Mat) error {
	ctx := s.timingTracker.StartTiming(context.Background(), "save_image")
	defer s.timingTracker.EndTiming(ctx)

	data, err := s.Encode(img, filepath.Ext(path))
	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"path": path,
		})
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info("ImageSaver", "image saved", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
	})
	return nil
}
