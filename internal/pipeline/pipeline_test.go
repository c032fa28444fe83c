package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/detector"
	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

const testCatalog = `
- code: Tri
  name: Triangle
  points: [[50, 20], [30, 70], [70, 70]]
  edges: [[0, 1], [1, 2], [2, 0]]
- code: Big
  name: Big Dipper
  points: [[0, 0], [10, 0], [20, 0], [30, 0], [40, 0], [50, 0], [60, 0]]
  edges: [[0, 1]]
`

// triangleStars are the Tri pattern points shifted by (60, 60).
var triangleStars = []image.Point{{110, 80}, {90, 130}, {130, 130}}

// triangleBox covers triangleStars in a 200×200 image: pixels (70,60)-(150,150).
var triangleBox = imaging.NormalizedBox{XCenter: 0.55, YCenter: 0.525, Width: 0.4, Height: 0.45}

// darkBox covers an empty corner of the sky.
var darkBox = imaging.NormalizedBox{XCenter: 0.1, YCenter: 0.9, Width: 0.1, Height: 0.1}

func quietLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	original := Logf
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { Logf = original })
	return &lines
}

func testPipelineCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return cat
}

// writeSky writes a dark 200×200 PNG with a 3×3 star centered on each point.
func writeSky(t *testing.T, stars ...image.Point) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
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

	path := filepath.Join(t.TempDir(), "sky.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func staticDetections(entries ...detector.Entry) detector.Detector {
	return &detector.StaticDetector{Detections: detector.FromEntries(entries)}
}

func entry(label string, boxes ...imaging.NormalizedBox) detector.Entry {
	return detector.Entry{Label: label, Boxes: boxes}
}

func outputPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "out.png")
}

func TestRun_EmptyDetections(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)

	p := New(testPipelineCatalog(t), staticDetections())
	res := p.Run(context.Background(), writeSky(t), out)

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNoDetections)
	assert.NoFileExists(t, out)
}

func TestRun_DetectorError(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)
	cause := errors.New("inference service down")

	p := New(testPipelineCatalog(t), &detector.StaticDetector{Err: cause})
	res := p.Run(context.Background(), writeSky(t), out)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNoDetections)
	assert.ErrorIs(t, res.Err, cause)
	assert.NoFileExists(t, out)
}

func TestRun_InvalidImage(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	out := filepath.Join(dir, "out.png")

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", triangleBox)))
	res := p.Run(context.Background(), bad, out)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrInvalidImage)
	assert.NoFileExists(t, out)
}

func TestRun_DrawsMatchedConstellation(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", triangleBox)))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), out)

	require.True(t, res.Success, "run failed: %v", res.Err)
	assert.NoError(t, res.Err)
	assert.NoError(t, res.SkipErr())
	assert.Equal(t, []string{"Tri"}, res.Drawn())
	assert.Equal(t, out, res.Output)
	assert.Equal(t, 200, res.Width)

	outcome := res.Labels[0]
	assert.Equal(t, "Triangle", outcome.Name)
	assert.Equal(t, imaging.PixelRect{X: 70, Y: 60, Width: 80, Height: 90}, outcome.Region)
	assert.Equal(t, 3, outcome.Found)
	if diff := cmp.Diff(triangleStars, outcome.Stars); diff != "" {
		t.Errorf("matched stars mismatch (-want +got):\n%s", diff)
	}

	img, err := imaging.Open(out)
	require.NoError(t, err)
	marker := color.NRGBAModel.Convert(imaging.DefaultStyle().MarkerColor)
	for _, s := range triangleStars {
		assert.Equal(t, marker, color.NRGBAModel.Convert(img.At(s.X, s.Y)), "marker at %v", s)
	}
}

func TestRun_UnknownLabelSkipped(t *testing.T) {
	logs := quietLogs(t)
	out := outputPath(t)

	p := New(testPipelineCatalog(t), staticDetections(
		entry("Xyz", triangleBox),
		entry("Tri", triangleBox),
	))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), out)

	require.True(t, res.Success)
	require.Len(t, res.Labels, 2)
	assert.Equal(t, StatusUnknownLabel, res.Labels[0].Status)
	assert.ErrorIs(t, res.Labels[0].Err, ErrUnknownLabel)
	assert.Equal(t, StatusDrawn, res.Labels[1].Status)
	assert.Equal(t, []string{"Tri"}, res.Drawn())
	assert.ErrorIs(t, res.SkipErr(), ErrUnknownLabel)
	assert.FileExists(t, out)

	found := false
	for _, l := range *logs {
		if strings.Contains(l, `"Xyz"`) {
			found = true
		}
	}
	assert.True(t, found, "skip of Xyz should be logged: %v", *logs)
}

func TestRun_DarkRegion(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)

	p := New(testPipelineCatalog(t), staticDetections(
		entry("Tri", darkBox),
		entry("Big", triangleBox),
	))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), out)

	// The run executed even though nothing could be drawn.
	assert.True(t, res.Success)
	assert.Empty(t, res.Drawn())
	assert.FileExists(t, out)

	require.Len(t, res.Labels, 2)
	assert.Equal(t, StatusInsufficientStars, res.Labels[0].Status)
	assert.Equal(t, 0, res.Labels[0].Found)
	assert.Equal(t, StatusInsufficientStars, res.Labels[1].Status)
	assert.Equal(t, 7, res.Labels[1].Expected)

	errs := res.SkipErr()
	assert.ErrorIs(t, errs, ErrInsufficientStars)
}

// A label's later boxes are ignored even when the first box finds nothing.
// Choosing among several boxes of one label is a deliberate future change.
func TestRun_UsesFirstBoxOnly(t *testing.T) {
	quietLogs(t)

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", darkBox, triangleBox)))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), outputPath(t))

	require.True(t, res.Success)
	require.Len(t, res.Labels, 1)
	assert.Equal(t, StatusInsufficientStars, res.Labels[0].Status)
	assert.Equal(t, imaging.Denormalize(darkBox, 200, 200), res.Labels[0].Region)
}

func TestRun_WriteFailure(t *testing.T) {
	quietLogs(t)
	out := filepath.Join(t.TempDir(), "missing", "out.png")

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", triangleBox)))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), out)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrWriteOutput)
	assert.Equal(t, []string{"Tri"}, res.Drawn())
}

func TestRun_LeavesSourceUntouched(t *testing.T) {
	quietLogs(t)
	path := writeSky(t, triangleStars...)
	src, err := imaging.Open(path)
	require.NoError(t, err)

	loads := 0
	loader := func(string) (image.Image, error) {
		loads++
		return src, nil
	}

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", triangleBox)), WithLoader(loader))
	res := p.Run(context.Background(), path, outputPath(t))

	require.True(t, res.Success)
	assert.Equal(t, 1, loads)
	// The output has a marker here; the source must still show the star.
	r, g, b, _ := src.At(110, 80).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8}, "source pixel changed")
}

func TestRun_Style(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)

	style := imaging.DefaultStyle()
	style.MarkerColor = color.NRGBA{0, 255, 0, 255}

	p := New(testPipelineCatalog(t), staticDetections(entry("Tri", triangleBox)), WithStyle(style))
	res := p.Run(context.Background(), writeSky(t, triangleStars...), out)
	require.True(t, res.Success)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, color.NRGBAModel.Convert(img.At(130, 130)))
}

func TestRun_Cancelled(t *testing.T) {
	quietLogs(t)
	out := outputPath(t)
	ctx, cancel := context.WithCancel(context.Background())

	det := detector.Func(func(context.Context, string) (*detector.Detections, error) {
		d := detector.NewDetections()
		d.Add("Tri", triangleBox)
		cancel()
		return d, nil
	})

	res := New(testPipelineCatalog(t), det).Run(ctx, writeSky(t, triangleStars...), out)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NoFileExists(t, out)
}
