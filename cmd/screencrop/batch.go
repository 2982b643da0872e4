package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"screencrop/internal/config"
	"screencrop/internal/debug"
	"screencrop/internal/debug/timing"
	"screencrop/internal/logger"
	"screencrop/internal/opencv/safe"
	"screencrop/internal/pipeline"
)

type batch struct {
	logger   logger.Logger
	cfg      config.CropConfig
	nav      bool
	outDir   string
	suffix   string
	pipeline *pipeline.Pipeline
	loader   *pipeline.ImageLoader
	saver    *pipeline.ImageSaver
	sink     debug.ArtifactWriter
	tracker  *timing.Tracker
}

type batchSummary struct {
	processed int
	failed    int
	navBars   int
	noContent int
}

// collectInputs expands directories into their supported image files.
// Explicit file arguments are kept even when the extension is unknown.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !pipeline.IsSupported(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// outputPath names the result of input: <stem><suffix><ext> in outDir, or
// beside the input when outDir is empty. Formats the saver cannot write,
// such as GIF, are renamed to .png so the bytes match the extension.
func outputPath(input, outDir, suffix string) (string, error) {
	dir := filepath.Dir(input)
	if outDir != "" {
		dir = outDir
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if !pipeline.CanEncode(ext) {
		ext = ".png"
	}

	out := filepath.Join(dir, stem+suffix+ext)
	if filepath.Clean(out) == filepath.Clean(input) {
		return "", fmt.Errorf("output %s would overwrite its input", out)
	}
	return out, nil
}

func (b *batch) processAll(ctx context.Context, files []string) batchSummary {
	var s batchSummary
	for _, file := range files {
		if ctx.Err() != nil {
			b.logger.Warning("Batch", "interrupted, remaining files skipped", map[string]interface{}{
				"remaining": len(files) - s.processed - s.failed,
			})
			break
		}

		res, err := b.processFile(ctx, file)
		if err != nil {
			s.failed++
			b.logger.Error("Batch", err, map[string]interface{}{"file": file})
			continue
		}

		s.processed++
		if res.Outcome.Detected {
			s.navBars++
		}
		if res.NoContent {
			s.noContent++
		}
		res.Close()
	}
	return s
}

func (b *batch) processFile(ctx context.Context, file string) (*pipeline.Result, error) {
	fileCtx := b.tracker.StartTiming(ctx, "process_file")
	defer b.tracker.EndTiming(fileCtx)

	out, err := outputPath(file, b.outDir, b.suffix)
	if err != nil {
		return nil, err
	}

	img, err := b.loader.LoadFile(file)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	res, err := b.crop(img, file)
	if err != nil {
		return nil, err
	}

	if err := b.saver.SaveFile(out, res.Image); err != nil {
		res.Close()
		return nil, err
	}

	fields := res.Outcome.Fields()
	fields["input"] = file
	fields["output"] = out
	fields["size"] = fmt.Sprintf("%dx%d", res.Image.Width(), res.Image.Height())
	fields["no_content"] = res.NoContent
	b.logger.Info("Batch", "file processed", fields)

	return res, nil
}

func (b *batch) crop(img *safe.Mat, file string) (*pipeline.Result, error) {
	if b.nav {
		return b.pipeline.CropWithNavRemovalNamed(img, b.cfg, b.sink, file)
	}
	return b.pipeline.Crop(img, b.cfg)
}

func (b *batch) logSummary(s batchSummary) {
	b.logger.Info("Batch", "batch finished", map[string]interface{}{
		"processed":  s.processed,
		"failed":     s.failed,
		"nav_bars":   s.navBars,
		"no_content": s.noContent,
	})

	for _, st := range b.tracker.Summary() {
		b.logger.Info("Timing", st.Operation, map[string]interface{}{
			"count":      st.Count,
			"average_ms": float64(st.Average.Microseconds()) / 1000,
			"max_ms":     float64(st.Max.Microseconds()) / 1000,
			"total_ms":   float64(st.Total.Microseconds()) / 1000,
		})
	}
}
