package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createStarfield returns a dark image with a bright 3x3 square centered on
// every given point.
func createStarfield(width, height int, stars ...image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{10, 10, 20, 255})
		}
	}
	for _, s := range stars {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				img.Set(s.X+dx, s.Y+dy, color.White)
			}
		}
	}
	return img
}

// writeTestImage encodes img as PNG into a temp file and returns its path.
func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "starfield-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}
	return tmpFile.Name()
}

func TestOpen(t *testing.T) {
	imgPath := writeTestImage(t, createStarfield(120, 80, image.Pt(10, 10)))
	defer os.Remove(imgPath)

	img, err := Open(imgPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", img.Bounds().Dx(), img.Bounds().Dy())
	}

	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("star pixel: got (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestOpen_Invalid(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	if _, err := Open(tmpFile.Name()); err == nil {
		t.Error("Open should fail for invalid image data")
	}
	if _, err := Open("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Open should fail for non-existent file")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := createStarfield(40, 30, image.Pt(20, 15))

	for _, name := range []string{"out.png", "out.jpg", "out.bmp", "out.tif"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(src, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			img, err := Open(path)
			if err != nil {
				t.Fatalf("Open after Save failed: %v", err)
			}
			if img.Bounds().Size() != src.Bounds().Size() {
				t.Errorf("size: got %v, want %v", img.Bounds().Size(), src.Bounds().Size())
			}
		})
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xyz")
	if err := Save(createStarfield(4, 4), path); err == nil {
		t.Error("Save should fail for an unknown extension")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, createStarfield(100, 100))
	defer os.Remove(imgPath)

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
	if cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	cache := NewImageCache()
	path1 := writeTestImage(t, createStarfield(10, 10))
	path2 := writeTestImage(t, createStarfield(10, 10))
	defer os.Remove(path1)
	defer os.Remove(path2)

	cache.Load(path1)
	cache.Load(path2)

	cache.Evict(path1)
	if cache.Len() != 1 {
		t.Errorf("Len after Evict: got %d, want 1", cache.Len())
	}
	cache.Evict("/nonexistent/path")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, createStarfield(50, 50))
	defer os.Remove(imgPath)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
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
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, createStarfield(200, 150))
	defer os.Remove(imgPath)

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Width != 200 || info.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"a.png", "png"},
		{"a.JPG", "jpeg"},
		{"a.jpeg", "jpeg"},
		{"a.gif", "gif"},
		{"a.bmp", "bmp"},
		{"a.tiff", "tiff"},
		{"a.webp", "webp"},
		{"a.xyz", "unknown"},
	}
	for _, tt := range tests {
		if got := formatFromExt(tt.path); got != tt.format {
			t.Errorf("formatFromExt(%s): got %s, want %s", tt.path, got, tt.format)
		}
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeTestImage(t, createStarfield(300, 200))
	defer os.Remove(imgPath)

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("dimensions: got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
}
