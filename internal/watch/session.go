package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-coords-mcp/internal/analyze"
	"github.com/ironsheep/screen-coords-mcp/internal/flow"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
)

// DefaultAnalysisTimeout bounds the analysis of one artifact.
const DefaultAnalysisTimeout = 30 * time.Second

// SessionOptions configures a Session.
type SessionOptions struct {
	// Pattern is the glob screenshot names must match, e.g. "*.png".
	Pattern string

	// AnalysisTimeout bounds detection and matching for one artifact.
	AnalysisTimeout time.Duration

	// Annotate saves an annotated copy of each analyzed screenshot in the archive.
	Annotate bool

	// Companion names a file that must exist next to a screenshot before it is
	// processed, e.g. vision.SidecarPath. It is archived with the screenshot.
	// Nil means screenshots stand alone.
	Companion func(artifact string) string
}

// Outcome describes what happened to one artifact.
type Outcome struct {
	// Artifact is the path the artifact was seen at.
	Artifact string

	// State is the final state: Archived, or Idle when skipped or cancelled.
	State State

	// Skipped is set when the artifact was ignored: already seen in this
	// session or not eligible.
	Skipped bool

	// Cancelled is set when shutdown interrupted the artifact; it was left in
	// place.
	Cancelled bool

	// Failed is set when the artifact was archived as failed.
	Failed bool

	// ArchivedTo is the artifact's new path.
	ArchivedTo string

	// CompanionTo is the companion file's new path, if one was archived.
	CompanionTo string

	// Summary counts the flow changes.
	Summary flow.Summary

	// Err is the failure that led to a failed archive, or an archiving error.
	Err error
}

// Session is one run of the watch cycle. It remembers every artifact it has
// seen, by file name, and processes artifacts one at a time.
type Session struct {
	analyzer *analyze.Analyzer
	store    *flow.Store
	archiver *Archiver
	opts     SessionOptions
	log      logrus.FieldLogger

	mu        sync.Mutex
	state     State
	processed map[string]bool
}

// NewSession creates a Session that updates store and archives into archiver.
func NewSession(a *analyze.Analyzer, store *flow.Store, archiver *Archiver, opts SessionOptions, log logrus.FieldLogger) *Session {
	if opts.Pattern == "" {
		opts.Pattern = "*.png"
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = DefaultAnalysisTimeout
	}
	return &Session{
		analyzer:  a,
		store:     store,
		archiver:  archiver,
		opts:      opts,
		log:       log,
		processed: make(map[string]bool),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seen reports whether an artifact name was already taken up in this session.
func (s *Session) Seen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[name]
}

// Wants reports whether path names an artifact that Process would take up.
func (s *Session) Wants(path string) bool {
	name := filepath.Base(path)
	return Eligible(name, s.opts.Pattern) && !s.Seen(name)
}

// Companion returns the companion file path for an artifact, or "" when none
// is configured.
func (s *Session) Companion(path string) string {
	if s.opts.Companion == nil {
		return ""
	}
	return s.opts.Companion(path)
}

// Ready reports whether the artifact's companion, if any, has appeared.
func (s *Session) Ready(path string) bool {
	c := s.Companion(path)
	if c == "" {
		return true
	}
	info, err := os.Stat(c)
	return err == nil && info.Mode().IsRegular()
}

func (s *Session) fire(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Transition(s.state, e)
	if err != nil {
		// Every call site fires events in cycle order.
		panic(err)
	}
	s.state = next
}

// claim records name as seen and moves to ArtifactDetected. It returns false
// when the name was seen before or another artifact is in progress.
func (s *Session) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[name] {
		return false
	}
	next, err := Transition(s.state, ArtifactSeen)
	if err != nil {
		return false
	}
	s.processed[name] = true
	s.state = next
	return true
}

func (s *Session) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processed, name)
}

// Process runs one artifact through analysis, flow update and archiving.
//
// Errors from the vision collaborator, the flow file or a timeout are absorbed:
// the artifact is archived as failed and the outcome carries the error. When ctx
// ends before the flow is written the artifact is left in place and forgotten,
// so the next session picks it up again.
func (s *Session) Process(ctx context.Context, path string) Outcome {
	name := filepath.Base(path)
	out := Outcome{Artifact: path}
	if !Eligible(name, s.opts.Pattern) {
		out.Skipped = true
		return out
	}
	if !s.claim(name) {
		out.Skipped = true
		out.State = s.State()
		return out
	}

	log := s.log.WithField("artifact", name)
	log.Info("new screenshot")

	s.fire(AnalysisStarted)
	doc, report, err := s.analyze(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			s.fire(Cancelled)
			s.analyzer.Forget(path)
			s.release(name)
			log.Info("shutdown during analysis, screenshot left in place")
			out.Cancelled = true
			out.State = Idle
			return out
		}
		s.fire(Failed)
		return s.finish(path, nil, err, out, log)
	}

	s.fire(AnalysisSucceeded)
	_, sum, err := s.store.Apply(doc, report.Results)
	if err != nil {
		s.fire(Failed)
		return s.finish(path, report, fmt.Errorf("failed to update flow: %w", err), out, log)
	}
	out.Summary = sum
	log.WithFields(logrus.Fields{
		"updated":   sum.Updated,
		"resolved":  sum.Resolved,
		"reupdated": sum.Reupdated,
		"not_found": sum.NotFound,
	}).Info("flow updated")

	s.fire(UpdateSucceeded)
	return s.finish(path, report, nil, out, log)
}

// analyze returns the flow snapshot it matched against along with the report;
// the update must be applied to that same snapshot.
func (s *Session) analyze(ctx context.Context, path string) (*flow.Document, *analyze.Report, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, nil, err
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()

	report, err := s.analyzer.Analyze(actx, path, doc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil, fmt.Errorf("analysis timed out after %s: %w", s.opts.AnalysisTimeout, err)
		}
		return nil, nil, err
	}
	return doc, report, nil
}

// finish archives the artifact; the session is in Archived on entry and Idle on
// return.
func (s *Session) finish(path string, report *analyze.Report, cause error, out Outcome, log logrus.FieldLogger) Outcome {
	defer s.fire(Reset)

	out.State = Archived
	out.Failed = cause != nil
	out.Err = cause
	if cause != nil {
		log.WithError(cause).Error("analysis failed")
	}

	if report != nil {
		if _, err := s.archiver.WriteSummary(path, report); err != nil {
			log.WithError(err).Warn("could not write summary")
		}
		if s.opts.Annotate {
			s.saveAnnotated(path, report, log)
		}
	}

	s.analyzer.Forget(path)
	dest, err := s.archiver.Archive(path, out.Failed)
	if err != nil {
		log.WithError(err).Error("could not archive screenshot")
		if out.Err == nil {
			out.Err = err
		}
		return out
	}
	out.ArchivedTo = dest
	log.WithFields(logrus.Fields{
		"archived_to": dest,
		"failed":      out.Failed,
	}).Info("screenshot archived")

	if c := s.Companion(path); c != "" {
		if _, err := os.Lstat(c); err != nil {
			return out
		}
		cdest, err := s.archiver.ArchiveCompanion(path, dest, c)
		if err != nil {
			log.WithError(err).Warn("could not archive companion file")
			return out
		}
		out.CompanionTo = cdest
	}
	return out
}

func (s *Session) saveAnnotated(path string, report *analyze.Report, log logrus.FieldLogger) {
	img, err := s.analyzer.Annotate(path, report.Boxes())
	if err != nil {
		log.WithError(err).Warn("could not annotate screenshot")
		return
	}
	dest, err := s.archiver.SaveAnnotated(path, func(dest string) error {
		return imaging.Save(img, dest)
	})
	if err != nil {
		log.WithError(err).Warn("could not save annotated screenshot")
		return
	}
	log.WithField("annotated", dest).Debug("annotated screenshot saved")
}
