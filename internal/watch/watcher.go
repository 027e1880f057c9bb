package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Default timings of a Watcher.
const (
	DefaultPollInterval   = time.Second
	DefaultSettleInterval = 200 * time.Millisecond
)

// maxSettleChecks bounds how long a growing file is waited for.
const maxSettleChecks = 50

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// PollInterval is the scan period when filesystem events are unavailable.
	PollInterval time.Duration

	// SettleInterval is the pause between two size checks of a new file.
	SettleInterval time.Duration

	// Poll forces polling even when filesystem events work.
	Poll bool
}

// Watcher feeds screenshots appearing in a directory to a Session.
type Watcher struct {
	dir     string
	session *Session
	opts    WatcherOptions
	log     logrus.FieldLogger
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(dir string, s *Session, opts WatcherOptions, log logrus.FieldLogger) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = DefaultSettleInterval
	}
	return &Watcher{dir: dir, session: s, opts: opts, log: log}
}

// Scan processes every eligible screenshot already in the directory, oldest
// first, and returns the outcomes.
func (w *Watcher) Scan(ctx context.Context) ([]Outcome, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !w.session.Wants(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{path: path, modTime: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.Before(found[j].modTime)
		}
		return found[i].path < found[j].path
	})

	var outcomes []Outcome
	for _, c := range found {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if out, ok := w.handle(ctx, c.path); ok {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes, nil
}

// Run scans the directory, then processes new screenshots until ctx ends. It
// uses filesystem events and falls back to polling when they are unavailable.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("failed to open watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", w.dir)
	}

	if w.opts.Poll {
		return w.poll(ctx)
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fsw.Add(w.dir); err != nil {
			fsw.Close()
		}
	}
	if err != nil {
		w.log.WithError(err).Warn("filesystem events unavailable, polling")
		return w.poll(ctx)
	}
	defer fsw.Close()

	w.log.WithField("dir", w.dir).Info("watching for screenshots")
	if _, err := w.Scan(ctx); err != nil {
		return cleanExit(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if w.session.Wants(ev.Name) {
				w.handle(ctx, ev.Name)
				continue
			}
			// A companion file may complete a screenshot that was waiting.
			if w.session.opts.Companion != nil && !strings.HasPrefix(filepath.Base(ev.Name), ".") {
				if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
					w.log.WithError(err).Warn("scan failed")
				}
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			w.log.WithError(err).Warn("filesystem watcher error")
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	w.log.WithFields(logrus.Fields{
		"dir":      w.dir,
		"interval": w.opts.PollInterval.String(),
	}).Info("polling for screenshots")

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.Scan(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.WithError(err).Warn("scan failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// handle waits for the file, and its companion when one is required, to stop
// growing and hands it to the session. A screenshot whose companion has not
// appeared yet stays unclaimed for a later event or scan.
func (w *Watcher) handle(ctx context.Context, path string) (Outcome, bool) {
	if !w.session.Wants(path) {
		return Outcome{}, false
	}
	log := w.log.WithField("artifact", filepath.Base(path))
	if !w.session.Ready(path) {
		log.Debug("waiting for companion file")
		return Outcome{}, false
	}
	files := []string{path}
	if c := w.session.Companion(path); c != "" {
		files = append(files, c)
	}
	for _, f := range files {
		if err := w.settle(ctx, f); err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Debug("screenshot not ready")
			}
			return Outcome{}, false
		}
	}
	return w.session.Process(ctx, path), true
}

// settle returns once two size checks one interval apart agree on a non-empty
// regular file.
func (w *Watcher) settle(ctx context.Context, path string) error {
	last := int64(-1)
	for i := 0; i < maxSettleChecks; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		if info.Size() > 0 && info.Size() == last {
			return nil
		}
		last = info.Size()

		timer := time.NewTimer(w.opts.SettleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s is still changing", path)
}

func cleanExit(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
