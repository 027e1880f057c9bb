package watch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/screen-coords-mcp/internal/analyze"
)

// Name markers of archived files. A name carrying one of them is never picked
// up again, even if it is copied back into the watched directory.
const (
	AnalyzedMarker  = "_analyzed"
	FailedMarker    = "_failed"
	AnnotatedMarker = "_annotated"
	summarySuffix   = "_summary.txt"
)

// Eligible reports whether a file name is a screenshot the cycle should process:
// it matches pattern, is not hidden and carries no archive marker.
func Eligible(name, pattern string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if ok, err := filepath.Match(pattern, name); err != nil || !ok {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, m := range []string{AnalyzedMarker, FailedMarker, AnnotatedMarker} {
		if strings.Contains(stem, m) {
			return false
		}
	}
	return true
}

// Archiver moves processed screenshots into the archive directory.
type Archiver struct {
	dir string
}

// NewArchiver creates an Archiver writing into dir. The directory is created on
// first use.
func NewArchiver(dir string) *Archiver {
	return &Archiver{dir: dir}
}

// Archive moves path to <dir>/<stem>_analyzed<ext>, or <stem>_failed<ext> when
// failed is set, and returns the new path. An existing file of that name is
// kept; the new one gets a numeric suffix.
func (a *Archiver) Archive(path string, failed bool) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	marker := AnalyzedMarker
	if failed {
		marker = FailedMarker
	}
	dest, err := a.freeName(path, marker, filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if err := move(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ArchiveCompanion moves companion, a file that arrived alongside artifact, next
// to the archived artifact. Its name keeps whatever follows the artifact's stem:
// shot.detections.json archived with shot_analyzed.png becomes
// shot_analyzed.detections.json.
func (a *Archiver) ArchiveCompanion(artifact, archived, companion string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(artifact), filepath.Ext(artifact))
	suffix := filepath.Base(companion)
	if strings.HasPrefix(suffix, stem) {
		suffix = strings.TrimPrefix(suffix, stem)
	} else {
		suffix = "_" + suffix
	}
	archivedBase := filepath.Base(archived)
	dest := filepath.Join(filepath.Dir(archived), strings.TrimSuffix(archivedBase, filepath.Ext(archivedBase))+suffix)

	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("archive file %s already exists", dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check archive name: %w", err)
	}
	if err := move(companion, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// SaveAnnotated writes an annotated image for path as <stem>_annotated.png.
func (a *Archiver) SaveAnnotated(path string, save func(dest string) error) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	dest, err := a.freeName(path, AnnotatedMarker, ".png")
	if err != nil {
		return "", err
	}
	if err := save(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// WriteSummary writes a plain text account of report as
// <stem>_analyzed_summary.txt.
func (a *Archiver) WriteSummary(path string, report *analyze.Report) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	dest, err := a.freeName(path, AnalyzedMarker, summarySuffix)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "screenshot: %s (%dx%d)\n", filepath.Base(path), report.Width, report.Height)
	fmt.Fprintf(&b, "elements: %d merged from %d detections\n", len(report.Elements), report.Raw)
	fmt.Fprintf(&b, "steps: %d matched of %d\n", report.Found(), len(report.Steps))
	for _, s := range report.Steps {
		if s.Point == nil {
			fmt.Fprintf(&b, "  #%d %s %q: not found\n", s.Step.Index, s.Step.Command, s.Target.Text)
			continue
		}
		fmt.Fprintf(&b, "  #%d %s %q: %s score %d matched %q (%d detections)\n",
			s.Step.Index, s.Step.Command, s.Target.Text, s.Point, s.Result.Score, s.Result.MatchedText, s.Result.Element.Size())
	}

	if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return dest, nil
}

// freeName returns <dir>/<stem><marker><ext>, adding _2, _3, ... when taken.
func (a *Archiver) freeName(path, marker, ext string) (string, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for n := 1; n < 10000; n++ {
		name := stem + marker + ext
		if n > 1 {
			name = fmt.Sprintf("%s%s_%d%s", stem, marker, n, ext)
		}
		dest := filepath.Join(a.dir, name)
		if _, err := os.Lstat(dest); errors.Is(err, os.ErrNotExist) {
			return dest, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check archive name: %w", err)
		}
	}
	return "", fmt.Errorf("no free archive name for %s", base)
}

// move renames src to dest, copying when they are on different devices.
func move(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close archive file: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove archived artifact: %w", err)
	}
	return nil
}
