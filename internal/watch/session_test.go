package watch

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/screen-coords-mcp/internal/analyze"
	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/flow"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
	"github.com/ironsheep/screen-coords-mcp/internal/matcher"
	"github.com/ironsheep/screen-coords-mcp/internal/textnorm"
	"github.com/ironsheep/screen-coords-mcp/internal/vision"
)

const testFlow = `appId: sk.example.portal
---
- launchApp
- tapOn:
    point: TODO%,TODO%  # PROSIM NAJDI SURADNICE PRE "Heslo"
- tapOn:
    point: TODO%,TODO%  # Registrácia
`

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 1000, 1000))))
	require.NoError(t, f.Close())
}

func hesloDetector(calls *int32) vision.Detector {
	return vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return []detection.Detection{{
			Bounds:      detection.Bounds{X1: 600, Y1: 400, X2: 700, Y2: 450},
			OCRText:     "Heslo",
			Confidence:  0.95,
			ElementType: detection.TypeTextInput,
		}}, nil
	})
}

func blockingDetector(started chan<- struct{}) vision.Detector {
	return vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

type fixture struct {
	dir      string
	flowPath string
	archive  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		flowPath: filepath.Join(t.TempDir(), "login.yaml"),
		archive:  filepath.Join(dir, "FINISHED"),
	}
	writeFile(t, f.flowPath, testFlow)
	return f
}

func (f fixture) session(d vision.Detector, opts SessionOptions) *Session {
	return f.sessionWithCache(d, nil, opts)
}

func (f fixture) sessionWithCache(d vision.Detector, cache *imaging.ImageCache, opts SessionOptions) *Session {
	m := matcher.New(textnorm.New(textnorm.DefaultTables()), matcher.DefaultOptions())
	a := analyze.New(d, m, detection.DefaultMergeThreshold, cache, quietLogger())
	return NewSession(a, flow.NewStore(f.flowPath), NewArchiver(f.archive), opts, quietLogger())
}

func (f fixture) flow(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.flowPath)
	require.NoError(t, err)
	return string(data)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSessionProcessUpdatesAndArchives(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_01.png")
	writePNG(t, shot)
	s := f.session(hesloDetector(nil), SessionOptions{})

	out := s.Process(context.Background(), shot)

	require.NoError(t, out.Err)
	assert.Equal(t, Archived, out.State)
	assert.False(t, out.Failed)
	assert.Equal(t, filepath.Join(f.archive, "step_01_analyzed.png"), out.ArchivedTo)
	assert.Equal(t, flow.Summary{Updated: 1, Resolved: 1, NotFound: 1}, out.Summary)

	assert.False(t, exists(shot))
	assert.True(t, exists(out.ArchivedTo))
	assert.True(t, exists(filepath.Join(f.archive, "step_01_analyzed_summary.txt")))
	assert.False(t, exists(filepath.Join(f.archive, "step_01_annotated.png")))

	assert.Contains(t, f.flow(t), `point: 65%,43%  # PROSIM NAJDI SURADNICE PRE "Heslo"`)
	assert.Contains(t, f.flow(t), `point: TODO%,TODO%  # Registrácia`)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Seen("step_01.png"))
}

// A timed out analysis is archived as failed and the name is never taken up
// again in the same session.
func TestSessionTimeoutArchivesFailed(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_03.png")
	writePNG(t, shot)
	s := f.session(blockingDetector(nil), SessionOptions{AnalysisTimeout: 30 * time.Millisecond})

	out := s.Process(context.Background(), shot)

	assert.Equal(t, Archived, out.State)
	assert.True(t, out.Failed)
	require.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Equal(t, filepath.Join(f.archive, "step_03_failed.png"), out.ArchivedTo)
	assert.True(t, exists(out.ArchivedTo))
	assert.Equal(t, testFlow, f.flow(t))
	assert.Equal(t, Idle, s.State())

	again := s.Process(context.Background(), shot)
	assert.True(t, again.Skipped)

	writePNG(t, shot)
	again = s.Process(context.Background(), shot)
	assert.True(t, again.Skipped)
	assert.True(t, exists(shot), "a skipped artifact is not touched")
	assert.False(t, exists(filepath.Join(f.archive, "step_03_failed_2.png")))
}

func TestSessionDetectorError(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_04.png")
	writePNG(t, shot)

	boom := errors.New("model crashed")
	d := vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		return nil, boom
	})
	out := f.session(d, SessionOptions{}).Process(context.Background(), shot)

	assert.True(t, out.Failed)
	require.ErrorIs(t, out.Err, boom)
	assert.Equal(t, filepath.Join(f.archive, "step_04_failed.png"), out.ArchivedTo)
	assert.Equal(t, testFlow, f.flow(t))
}

func TestSessionMissingFlowFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.flowPath))
	shot := filepath.Join(f.dir, "step_05.png")
	writePNG(t, shot)

	var calls int32
	out := f.session(hesloDetector(&calls), SessionOptions{}).Process(context.Background(), shot)

	assert.True(t, out.Failed)
	require.Error(t, out.Err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.True(t, exists(filepath.Join(f.archive, "step_05_failed.png")))
}

func TestSessionShutdownLeavesArtifact(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_06.png")
	writePNG(t, shot)

	started := make(chan struct{})
	s := f.session(blockingDetector(started), SessionOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	out := s.Process(ctx, shot)

	assert.True(t, out.Cancelled)
	assert.Equal(t, Idle, out.State)
	assert.True(t, exists(shot))
	assert.False(t, exists(f.archive))
	assert.False(t, s.Seen("step_06.png"))
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, testFlow, f.flow(t))
}

func TestSessionAnnotates(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_07.png")
	writePNG(t, shot)

	out := f.session(hesloDetector(nil), SessionOptions{Annotate: true}).Process(context.Background(), shot)
	require.NoError(t, out.Err)

	annotated := filepath.Join(f.archive, "step_07_annotated.png")
	require.True(t, exists(annotated))
	file, err := os.Open(annotated)
	require.NoError(t, err)
	defer file.Close()
	cfg, err := png.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Width)
}

func TestSessionSkipsIneligible(t *testing.T) {
	f := newFixture(t)
	var calls int32
	s := f.session(hesloDetector(&calls), SessionOptions{})

	for _, name := range []string{".hidden.png", "step_01_analyzed.png", "notes.txt"} {
		path := filepath.Join(f.dir, name)
		writeFile(t, path, "x")
		out := s.Process(context.Background(), path)
		assert.True(t, out.Skipped, name)
		assert.True(t, exists(path), name)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

// Decodes made by the detector are dropped once each screenshot is archived,
// whether it succeeded or failed.
func TestSessionReleasesDecodedScreenshots(t *testing.T) {
	f := newFixture(t)
	cache := imaging.NewImageCache()
	heslo := hesloDetector(nil)
	d := vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		if _, err := cache.Load(imagePath); err != nil {
			return nil, err
		}
		if filepath.Base(imagePath) == "step_02.png" {
			return nil, errors.New("model crashed")
		}
		return heslo.Detect(ctx, imagePath)
	})
	s := f.sessionWithCache(d, cache, SessionOptions{Annotate: true})

	for _, name := range []string{"step_01.png", "step_02.png", "step_03.png"} {
		shot := filepath.Join(f.dir, name)
		writePNG(t, shot)
		out := s.Process(context.Background(), shot)
		assert.Equal(t, Archived, out.State, name)
	}

	assert.True(t, exists(filepath.Join(f.archive, "step_02_failed.png")))
	assert.Equal(t, 0, cache.Len())
}

func TestSessionShutdownReleasesDecode(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_06.png")
	writePNG(t, shot)

	cache := imaging.NewImageCache()
	ctx, cancel := context.WithCancel(context.Background())
	d := vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		if _, err := cache.Load(imagePath); err != nil {
			return nil, err
		}
		cancel()
		return nil, ctx.Err()
	})
	out := f.sessionWithCache(d, cache, SessionOptions{}).Process(ctx, shot)

	assert.True(t, out.Cancelled)
	assert.True(t, exists(shot))
	assert.Equal(t, 0, cache.Len())
}

// The points are written into the flow that was matched; if the file changed
// during analysis the artifact fails and the other writer's content stays.
func TestSessionKeepsFlowEditedDuringAnalysis(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_08.png")
	writePNG(t, shot)

	edited := strings.Replace(testFlow, "- launchApp\n", "- launchApp\n- back\n", 1)
	heslo := hesloDetector(nil)
	d := vision.DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		if err := os.WriteFile(f.flowPath, []byte(edited), 0o644); err != nil {
			return nil, err
		}
		return heslo.Detect(ctx, imagePath)
	})

	out := f.session(d, SessionOptions{}).Process(context.Background(), shot)

	assert.True(t, out.Failed)
	require.ErrorIs(t, out.Err, flow.ErrModified)
	assert.Equal(t, filepath.Join(f.archive, "step_08_failed.png"), out.ArchivedTo)
	assert.Equal(t, edited, f.flow(t))
}

func TestSessionArchivesCompanion(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_09.png")
	writePNG(t, shot)
	companion := vision.SidecarPath(shot)
	writeFile(t, companion, "[]")

	s := f.session(hesloDetector(nil), SessionOptions{Companion: vision.SidecarPath})
	assert.Equal(t, companion, s.Companion(shot))
	assert.True(t, s.Ready(shot))

	out := s.Process(context.Background(), shot)
	require.NoError(t, out.Err)

	assert.Equal(t, filepath.Join(f.archive, "step_09_analyzed.detections.json"), out.CompanionTo)
	assert.True(t, exists(out.CompanionTo))
	assert.False(t, exists(companion))
}

func TestSessionReadyWithoutCompanion(t *testing.T) {
	f := newFixture(t)
	shot := filepath.Join(f.dir, "step_10.png")
	writePNG(t, shot)

	assert.True(t, f.session(hesloDetector(nil), SessionOptions{}).Ready(shot))
	assert.False(t, f.session(hesloDetector(nil), SessionOptions{Companion: vision.SidecarPath}).Ready(shot))
}
