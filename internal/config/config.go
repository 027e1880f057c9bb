package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/matcher"
	"github.com/ironsheep/screen-coords-mcp/internal/textnorm"
)

// Prefix is the prefix of every environment variable read by Load.
const Prefix = "SCREEN_COORDS_"

// Detector names accepted in SCREEN_COORDS_DETECTOR.
const (
	DetectorTesseract = "tesseract"
	DetectorSidecar   = "sidecar"
)

// Config is the runtime configuration of the watch cycle and the MCP server.
type Config struct {
	// WatchDir is the directory screenshots are dropped into.
	WatchDir string
	// FlowFile is the Maestro flow kept in sync.
	FlowFile string
	// Pattern selects screenshot file names.
	Pattern string
	// ArchiveDir receives processed screenshots. A relative path is taken
	// relative to WatchDir.
	ArchiveDir string

	AnalysisTimeout time.Duration
	PollInterval    time.Duration
	SettleInterval  time.Duration
	// Poll disables filesystem events.
	Poll bool

	MergeThreshold   float64
	AcceptThreshold  int
	DiacriticPenalty int

	// Detector is DetectorTesseract or DetectorSidecar.
	Detector         string
	OCRLanguage      string
	OCRMinConfidence float64

	// Annotate saves annotated screenshots in the archive.
	Annotate bool
	// TablesFile is an optional YAML file with OCR fixes and synonyms.
	TablesFile string

	LogLevel logrus.Level
}

// Load reads an optional .env file from the working directory, then the
// SCREEN_COORDS_* environment variables. Variables already set in the
// environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		WatchDir:         getEnv("WATCH_DIR", "screenshots"),
		FlowFile:         getEnv("FLOW_FILE", ""),
		Pattern:          getEnv("PATTERN", "*.png"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "FINISHED"),
		AnalysisTimeout:  p.duration("ANALYSIS_TIMEOUT", 30*time.Second),
		PollInterval:     p.duration("POLL_INTERVAL", time.Second),
		SettleInterval:   p.duration("SETTLE_INTERVAL", 200*time.Millisecond),
		Poll:             p.boolean("POLL", false),
		MergeThreshold:   p.float("MERGE_THRESHOLD", detection.DefaultMergeThreshold),
		AcceptThreshold:  p.integer("ACCEPT_THRESHOLD", matcher.DefaultAcceptThreshold),
		DiacriticPenalty: p.integer("DIACRITIC_PENALTY", matcher.DefaultDiacriticPenalty),
		Detector:         strings.ToLower(getEnv("DETECTOR", DetectorTesseract)),
		OCRLanguage:      getEnv("OCR_LANG", "slk+eng"),
		OCRMinConfidence: p.float("OCR_MIN_CONFIDENCE", 0.5),
		Annotate:         p.boolean("ANNOTATE", false),
		TablesFile:       getEnv("TABLES_FILE", ""),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err))
	}
	cfg.LogLevel = level

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Pattern == "" {
		errs = append(errs, errors.New("pattern must not be empty"))
	} else if _, err := filepath.Match(c.Pattern, ""); err != nil {
		errs = append(errs, fmt.Errorf("pattern %q: %w", c.Pattern, err))
	}
	if c.AnalysisTimeout <= 0 || c.PollInterval <= 0 || c.SettleInterval <= 0 {
		errs = append(errs, errors.New("timeout and intervals must be positive"))
	}
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		errs = append(errs, fmt.Errorf("merge threshold %v outside (0,1]", c.MergeThreshold))
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 100 {
		errs = append(errs, fmt.Errorf("accept threshold %d outside [0,100]", c.AcceptThreshold))
	}
	if c.DiacriticPenalty < 0 || c.DiacriticPenalty > 100 {
		errs = append(errs, fmt.Errorf("diacritic penalty %d outside [0,100]", c.DiacriticPenalty))
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("OCR min confidence %v outside [0,1]", c.OCRMinConfidence))
	}
	if c.Detector != DetectorTesseract && c.Detector != DetectorSidecar {
		errs = append(errs, fmt.Errorf("unknown detector %q", c.Detector))
	}
	return errors.Join(errs...)
}

// RequireFlow reports an error when no flow file is configured.
func (c *Config) RequireFlow() error {
	if c.FlowFile == "" {
		return fmt.Errorf("%sFLOW_FILE is not set", Prefix)
	}
	return nil
}

// ArchivePath returns the archive directory, resolved against WatchDir.
func (c *Config) ArchivePath() string {
	if filepath.IsAbs(c.ArchiveDir) {
		return c.ArchiveDir
	}
	return filepath.Join(c.WatchDir, c.ArchiveDir)
}

// MatcherOptions returns the matcher settings.
func (c *Config) MatcherOptions() matcher.Options {
	opts := matcher.DefaultOptions()
	opts.AcceptThreshold = c.AcceptThreshold
	opts.DiacriticPenalty = c.DiacriticPenalty
	return opts
}

// Tables loads the normalization tables, the defaults when no file is set.
func (c *Config) Tables() (textnorm.Tables, error) {
	return textnorm.LoadTables(c.TablesFile)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	return defaultVal
}

// parser collects conversion errors so Load can report all of them at once.
type parser struct {
	errs *[]error
}

func (p parser) fail(key, val string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s%s=%q: %w", Prefix, key, val, err))
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return d
}

func (p parser) float(key string, def float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return f
}

func (p parser) integer(key string, def int) int {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return n
}

func (p parser) boolean(key string, def bool) bool {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return b
}
