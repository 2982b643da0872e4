package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"screencrop/internal/logger"
	"screencrop/internal/opencv/safe"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// DirWriter stores artifacts as PNG files in one directory. Every file gets
// a random suffix so repeated names never overwrite each other.
type DirWriter struct {
	dir    string
	logger logger.Logger

	mu      sync.Mutex
	written []string
}

func NewDirWriter(dir string, log logger.Logger) (*DirWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("debug directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug directory: %w", err)
	}
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &DirWriter{dir: dir, logger: log}, nil
}

func (w *DirWriter) WriteArtifact(name string, img *safe.Mat) error {
	if err := safe.ValidateMatForOperation(img, "WriteArtifact"); err != nil {
		return err
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.png", artifactStem(name), uuid.NewString()))
	if ok := gocv.IMWrite(path, img.GetMat()); !ok {
		return fmt.Errorf("encode artifact %s failed", path)
	}

	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()

	w.logger.Info(component, "debug artifact saved", map[string]interface{}{
		"path": path,
	})
	return nil
}

// Written lists the files produced so far.
func (w *DirWriter) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.written))
	copy(out, w.written)
	return out
}

func artifactStem(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "debug"
	}
	return stem
}

type Artifact struct {
	Name  string
	Image *safe.Mat
}

// MemoryWriter keeps clones of every artifact. Close releases them.
type MemoryWriter struct {
	mu        sync.Mutex
	artifacts []Artifact
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) WriteArtifact(name string, img *safe.Mat) error {
	clone, err := img.Clone()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.artifacts = append(w.artifacts, Artifact{Name: name, Image: clone})
	w.mu.Unlock()
	return nil
}

func (w *MemoryWriter) Artifacts() []Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Artifact, len(w.artifacts))
	copy(out, w.artifacts)
	return out
}

func (w *MemoryWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.artifacts {
		a.Image.Close()
	}
	w.artifacts = nil
}
