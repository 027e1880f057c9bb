package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage writes a solid color PNG into dir and returns its path.
func writeTestImage(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, img))
	return path
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, t.TempDir(), "shot.png", 100, 60, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	require.NoError(t, err)
	assert.Equal(t, 100, img1.Bounds().Dx())
	assert.Equal(t, 60, img1.Bounds().Dy())

	img2, err := cache.Load(imgPath)
	require.NoError(t, err)
	assert.True(t, img1 == img2, "second Load should return the cached image")
	assert.Equal(t, 1, cache.Len())
}

func TestImageCache_Load_ReloadsChangedFile(t *testing.T) {
	cache := NewImageCache()
	dir := t.TempDir()
	imgPath := writeTestImage(t, dir, "shot.png", 50, 50, color.RGBA{0, 255, 0, 255})

	_, err := cache.Load(imgPath)
	require.NoError(t, err)

	writeTestImage(t, dir, "shot.png", 80, 40, color.RGBA{0, 0, 255, 255})

	img, err := cache.Load(imgPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 40), img.Bounds(), "stale image served")
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := cache.Load(path)
	assert.Error(t, err)
	assert.Zero(t, cache.Len(), "failed load must not be cached")
}

func TestImageCache_Evict(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, t.TempDir(), "shot.png", 20, 20, color.Black)

	_, err := cache.Load(imgPath)
	require.NoError(t, err)
	cache.Evict(imgPath)
	cache.Evict("/nonexistent/path")

	assert.Zero(t, cache.Len())
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, t.TempDir(), "shot.png", 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestDimensions(t *testing.T) {
	imgPath := writeTestImage(t, t.TempDir(), "shot.png", 1080, 24, color.White)

	size, err := Dimensions(imgPath)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1080, Height: 24}, size)
}

func TestDimensions_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Dimensions(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0o644))
	_, err = Dimensions(broken)
	assert.Error(t, err)
}
