package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/analyze"
	"github.com/ironsheep/screen-coords-mcp/internal/config"
	"github.com/ironsheep/screen-coords-mcp/internal/flow"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
	"github.com/ironsheep/screen-coords-mcp/internal/matcher"
	"github.com/ironsheep/screen-coords-mcp/internal/ocr"
	"github.com/ironsheep/screen-coords-mcp/internal/server"
	"github.com/ironsheep/screen-coords-mcp/internal/textnorm"
	"github.com/ironsheep/screen-coords-mcp/internal/vision"
	"github.com/ironsheep/screen-coords-mcp/internal/watch"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("screen-coords %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	case "serve", "watch", "scan", "ocr-info":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// stdout is for MCP protocol
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("screen-coords starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, cfg, log); err != nil {
		log.WithError(err).Error(cmd + " failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, cfg *config.Config, log *logrus.Logger) error {
	cache := imaging.NewImageCache()
	ocrOpts := ocr.DefaultOptions()
	ocrOpts.Language = cfg.OCRLanguage
	ocrOpts.MinConfidence = cfg.OCRMinConfidence
	engine := ocr.NewEngine(ocrOpts, cache, log.WithField("component", "ocr"))

	if cmd == "ocr-info" {
		out, err := json.MarshalIndent(engine.Info(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	a, err := newAnalyzer(cfg, engine, cache, log)
	if err != nil {
		return err
	}

	switch cmd {
	case "watch", "scan":
		return watchDir(ctx, cmd == "scan", cfg, a, log)
	default:
		srv := server.New(a, server.Options{Reader: engine, Version: Version}, log.WithField("component", "server"))
		return srv.Run(ctx)
	}
}

// newAnalyzer wires the configured detector behind classification and
// serialization.
func newAnalyzer(cfg *config.Config, engine *ocr.Engine, cache *imaging.ImageCache, log *logrus.Logger) (*analyze.Analyzer, error) {
	var d vision.Detector = engine
	if cfg.Detector == config.DetectorSidecar {
		d = vision.NewSidecarDetector(engine, cache, log.WithField("component", "sidecar"))
	}
	d = vision.NewSerial(vision.NewClassifying(d))

	tables, err := cfg.Tables()
	if err != nil {
		return nil, err
	}
	m := matcher.New(textnorm.New(tables), cfg.MatcherOptions())
	return analyze.New(d, m, cfg.MergeThreshold, cache, log.WithField("component", "analyze")), nil
}

func watchDir(ctx context.Context, once bool, cfg *config.Config, a *analyze.Analyzer, log *logrus.Logger) error {
	if err := cfg.RequireFlow(); err != nil {
		return err
	}

	opts := watch.SessionOptions{
		Pattern:         cfg.Pattern,
		AnalysisTimeout: cfg.AnalysisTimeout,
		Annotate:        cfg.Annotate,
	}
	if cfg.Detector == config.DetectorSidecar {
		opts.Companion = vision.SidecarPath
	}
	session := watch.NewSession(a, flow.NewStore(cfg.FlowFile), watch.NewArchiver(cfg.ArchivePath()), opts, log.WithField("component", "session"))
	w := watch.NewWatcher(cfg.WatchDir, session, watch.WatcherOptions{
		PollInterval:   cfg.PollInterval,
		SettleInterval: cfg.SettleInterval,
		Poll:           cfg.Poll,
	}, log.WithField("component", "watcher"))

	log.WithFields(logrus.Fields{
		"dir":     cfg.WatchDir,
		"flow":    cfg.FlowFile,
		"archive": cfg.ArchivePath(),
	}).Info("watching for screenshots")

	if !once {
		return w.Run(ctx)
	}

	outcomes, err := w.Scan(ctx)
	if err != nil {
		return err
	}
	var total flow.Summary
	failed := 0
	for _, o := range outcomes {
		total.Add(o.Summary)
		if o.Failed {
			failed++
		}
	}
	log.WithFields(logrus.Fields{
		"screenshots": len(outcomes),
		"failed":      failed,
		"updated":     total.Updated,
		"not_found":   total.NotFound,
	}).Info("scan finished")
	return nil
}

func usage() {
	fmt.Println("screen-coords - resolve Maestro flow coordinates from screenshots")
	fmt.Println()
	fmt.Println("Usage: screen-coords [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve            Run the MCP server on stdin/stdout (default)")
	fmt.Println("  watch            Watch the screenshot directory and update the flow")
	fmt.Println("  scan             Process the screenshots already present, then exit")
	fmt.Println("  ocr-info         Print the OCR backend status")
	fmt.Println("  version, -v      Print version information")
	fmt.Println("  help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  SCREEN_COORDS_WATCH_DIR=screenshots     Directory screenshots arrive in")
	fmt.Println("  SCREEN_COORDS_FLOW_FILE=flow.yaml       Maestro flow to update (watch, scan)")
	fmt.Println("  SCREEN_COORDS_ARCHIVE_DIR=FINISHED      Where processed screenshots go")
	fmt.Println("  SCREEN_COORDS_DETECTOR=tesseract        tesseract or sidecar")
	fmt.Println("  SCREEN_COORDS_ANALYSIS_TIMEOUT=30s      Limit per screenshot")
	fmt.Println("  SCREEN_COORDS_ANNOTATE=false            Archive annotated screenshots")
	fmt.Println("  SCREEN_COORDS_LOG_LEVEL=info            Log level")
}
