package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/nightguide-mcp/internal/config"
	"github.com/ironsheep/nightguide-mcp/internal/pipeline"
)

const testCatalog = `
- code: Tri
  name: Triangle
  points: [[50, 20], [30, 70], [70, 70]]
  edges: [[0, 1], [1, 2], [2, 0]]
`

// triangleLabel places a Tri box over the stars written by writeSky.
const triangleLabel = "0 0.55 0.525 0.4 0.45\n"

func init() {
	pipeline.SetLogger(nil)
}

// setupEnv isolates run from the caller's environment and points the
// catalog at a one-pattern file. It returns the taxonomy path.
func setupEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		config.EnvDetectorURL, config.EnvModelPath, config.EnvLabelsPath,
		config.EnvConfidence, config.EnvDetectTimeout, config.EnvLogLevel,
		config.EnvLineColor, config.EnvMarkerColor, config.EnvLabelColor,
	} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	t.Setenv(config.EnvCatalogPath, catalogPath)

	labels := filepath.Join(dir, "classes.txt")
	if err := os.WriteFile(labels, []byte("Tri\n"), 0o644); err != nil {
		t.Fatalf("failed to write labels: %v", err)
	}
	return labels
}

// writeSky writes a dark 200×200 PNG with the Tri stars shifted by (60, 60).
func writeSky(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{10, 10, 20, 255})
		}
	}
	for _, s := range []image.Point{{110, 80}, {90, 130}, {130, 130}} {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				img.Set(s.X+dx, s.Y+dy, color.White)
			}
		}
	}

	path := filepath.Join(dir, "sky.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestRun_LabelFiles(t *testing.T) {
	labels := setupEnv(t)
	dir := t.TempDir()
	in := writeSky(t, dir)
	out := filepath.Join(t.TempDir(), "annotated.png")
	if err := os.WriteFile(filepath.Join(dir, "sky.txt"), []byte(triangleLabel), 0o644); err != nil {
		t.Fatalf("failed to write label file: %v", err)
	}

	var buf bytes.Buffer
	if err := run(&buf, in, out, labels, dir, ""); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	text := buf.String()
	if !strings.Contains(text, "Tri") || !strings.Contains(text, string(pipeline.StatusDrawn)) {
		t.Errorf("outcome line missing: %q", text)
	}
	if !strings.Contains(text, "1 of 1 constellations drawn") {
		t.Errorf("summary missing: %q", text)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("annotated image not written: %v", err)
	}
}

func TestRun_HTTPDetector(t *testing.T) {
	labels := setupEnv(t)
	in := writeSky(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "annotated.jpg")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"detections":[{"class":0,"confidence":0.9,"box":[0.55,0.525,0.4,0.45]}]}`)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := run(&buf, in, out, labels, "", srv.URL); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(buf.String(), "1 of 1 constellations drawn") {
		t.Errorf("summary missing: %q", buf.String())
	}
}

func TestRun_NoDetector(t *testing.T) {
	labels := setupEnv(t)
	in := writeSky(t, t.TempDir())

	err := run(&bytes.Buffer{}, in, filepath.Join(t.TempDir(), "out.png"), labels, "", "")
	if err == nil || !strings.Contains(err.Error(), "no detector") {
		t.Errorf("expected missing detector error, got %v", err)
	}
}

func TestRun_NothingDetected(t *testing.T) {
	labels := setupEnv(t)
	dir := t.TempDir()
	in := writeSky(t, dir)
	out := filepath.Join(t.TempDir(), "out.png")

	// No sky.txt: the label file detector reports nothing
	err := run(&bytes.Buffer{}, in, out, labels, dir, "")
	if !errors.Is(err, pipeline.ErrNoDetections) {
		t.Errorf("expected ErrNoDetections, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written")
	}
}

func TestRun_BadCatalog(t *testing.T) {
	labels := setupEnv(t)
	t.Setenv(config.EnvCatalogPath, filepath.Join(t.TempDir(), "missing.yaml"))

	if err := run(&bytes.Buffer{}, "in.png", "out.png", labels, t.TempDir(), ""); err == nil {
		t.Error("expected error for missing catalog")
	}
}
