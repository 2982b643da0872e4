package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"screencrop/internal/config"
	"screencrop/internal/debug"
	"screencrop/internal/debug/timing"
	"screencrop/internal/logger"
	"screencrop/internal/pipeline"
)

const AppName = "screencrop"

type options struct {
	configPath  string
	outDir      string
	suffix      string
	nav         bool
	debugDir    string
	debugLayout string
	logLevel    string
	jsonLogs    bool
	cropBottom  float64
	threshold   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <image or directory>...\n", AppName)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "YAML file with crop settings")
	fs.StringVar(&opts.outDir, "out-dir", "", "Output directory (default: next to each input)")
	fs.StringVar(&opts.suffix, "suffix", "_cropped", "Suffix appended to output file names")
	fs.BoolVar(&opts.nav, "nav", true, "Remove a detected navigation bar before cropping")
	fs.StringVar(&opts.debugDir, "debug-dir", "", "Write debug overlays into this directory")
	fs.StringVar(&opts.debugLayout, "debug-layout", "", "Debug layout: overlay or side_by_side")
	fs.StringVar(&opts.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "debug, info, warn or error")
	fs.BoolVar(&opts.jsonLogs, "json-logs", false, "Emit JSON logs instead of console output")
	fs.Float64Var(&opts.cropBottom, "crop-bottom", -1, "Percent of rows to drop from the bottom without nav removal (negative: config value)")
	fs.IntVar(&opts.threshold, "threshold", -1, "Content mask luma cutoff (negative: config value)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, nil, fmt.Errorf("no input files")
	}
	return opts, fs.Args(), nil
}

// loadConfig reads the YAML file when given and applies flag overrides.
func loadConfig(opts *options) (config.CropConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if opts.cropBottom >= 0 {
		percent := opts.cropBottom
		cfg.CropBottomPercent = &percent
	}
	if opts.threshold >= 0 {
		cfg.Threshold = opts.threshold
	}
	if opts.debugLayout != "" {
		cfg.Debug.Layout = opts.debugLayout
	}

	return cfg, cfg.Validate()
}

func newLogger(opts *options, stderr io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	if opts.jsonLogs {
		return logger.NewZerolog(stderr, level), nil
	}
	return logger.NewConsoleLogger(level), nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, inputs, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	log, err := newLogger(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Error("Main", err, map[string]interface{}{"config": opts.configPath})
		return 2
	}

	tracker := timing.NewTracker(log)
	b := &batch{
		logger:   log,
		cfg:      cfg,
		nav:      opts.nav,
		outDir:   opts.outDir,
		suffix:   opts.suffix,
		pipeline: pipeline.New(log, pipeline.WithTimingTracker(tracker)),
		loader:   pipeline.NewImageLoader(log, tracker),
		saver:    pipeline.NewImageSaver(log, tracker),
		tracker:  tracker,
	}

	if opts.debugDir != "" {
		sink, err := debug.NewDirWriter(opts.debugDir, log)
		if err != nil {
			log.Error("Main", err, nil)
			return 2
		}
		b.sink = sink
		if !opts.nav {
			log.Warning("Main", "debug output is only rendered with -nav", nil)
		}
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			log.Error("Main", fmt.Errorf("create output directory: %w", err), nil)
			return 2
		}
	}

	files, err := collectInputs(inputs)
	if err != nil {
		log.Error("Main", err, nil)
		return 2
	}

	summary := b.processAll(ctx, files)
	b.logSummary(summary)

	if summary.failed > 0 || ctx.Err() != nil {
		return 1
	}
	return 0
}
