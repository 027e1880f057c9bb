package vision

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/screen-coords-mcp/internal/detection"
)

func TestSerialNeverOverlaps(t *testing.T) {
	var running, peak int32
	inner := DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return []detection.Detection{{Bounds: box(0, 0, 10, 10), Confidence: 1}}, nil
	})

	s := NewSerial(inner)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dets, err := s.Detect(context.Background(), "shot.png")
			assert.NoError(t, err)
			assert.Len(t, dets, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestSerialWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	inner := DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		close(started)
		<-release
		return nil, nil
	})
	s := NewSerial(inner)

	go func() { _, _ = s.Detect(context.Background(), "first.png") }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Detect(ctx, "second.png")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestSerialReturnsWhenContextEndsMidCall(t *testing.T) {
	release := make(chan struct{})
	inner := DetectorFunc(func(ctx context.Context, imagePath string) ([]detection.Detection, error) {
		<-release
		return nil, nil
	})
	s := NewSerial(inner)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.Detect(ctx, "shot.png")
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Detect did not return after cancellation")
	}

	// The guard stays held until the wrapped call really finishes.
	close(release)
	_, err := s.Detect(context.Background(), "next.png")
	require.NoError(t, err)
}
