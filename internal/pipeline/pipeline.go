package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/detection"
	"github.com/ironsheep/nightguide-mcp/internal/detector"
	"github.com/ironsheep/nightguide-mcp/internal/imaging"
	"github.com/ironsheep/nightguide-mcp/internal/matching"
)

// Loader decodes the input image.
type Loader func(path string) (image.Image, error)

// Pipeline overlays detected constellations onto photographs. It holds only
// read-only state and may serve concurrent runs with distinct file paths.
type Pipeline struct {
	catalog  *catalog.Catalog
	detector detector.Detector
	load     Loader
	style    imaging.Style
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader replaces the image decoder (default imaging.Open). The returned
// image is never drawn on.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) { p.load = l }
}

// WithStyle sets how matched constellations are drawn.
func WithStyle(s imaging.Style) Option {
	return func(p *Pipeline) { p.style = s }
}

// New returns a pipeline matching detections from det against cat.
func New(cat *catalog.Catalog, det detector.Detector, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:  cat,
		detector: det,
		load:     imaging.Open,
		style:    imaging.DefaultStyle(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run detects constellations in the image at imagePath, draws every one it
// can match and writes the annotated image to outputPath.
//
// Run never panics and never returns a nil Result. A run halts without
// writing output when the detector reports nothing or fails
// (ErrNoDetections), when the image cannot be decoded (ErrInvalidImage) or
// when ctx is done. Labels are processed in detection order using each
// label's first box only; a label that is not in the catalog, whose region
// lacks enough stars, or that cannot be matched is recorded and skipped.
func (p *Pipeline) Run(ctx context.Context, imagePath, outputPath string) *Result {
	dets, err := p.detector.Detect(ctx, imagePath)
	if err != nil {
		Logf("pipeline stopped: detector failed: %v", err)
		return failed(fmt.Errorf("%w: %w", ErrNoDetections, err))
	}
	if dets.Empty() {
		Logf("pipeline stopped: no constellations detected in %s", imagePath)
		return failed(ErrNoDetections)
	}

	src, err := p.load(imagePath)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrInvalidImage, err))
	}

	// Stars are always extracted from src so earlier overlays never read
	// as stars for later labels.
	canvas := imaging.NewCanvas(src)
	if src.Bounds().Min != (image.Point{}) {
		src = imaging.NewCanvas(src)
	}
	b := src.Bounds()
	result := &Result{
		Width:  b.Dx(),
		Height: b.Dy(),
		Labels: make([]LabelOutcome, 0, dets.Len()),
	}

	for _, label := range dets.Labels() {
		if err := ctx.Err(); err != nil {
			return failed(err)
		}
		boxes := dets.Boxes(label)
		if len(boxes) == 0 {
			continue
		}
		result.Labels = append(result.Labels, p.overlay(src, canvas, label, boxes[0]))
	}

	if err := imaging.Save(canvas, outputPath); err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrWriteOutput, err)
		return result
	}

	result.Success = true
	result.Output = outputPath
	Logf("pipeline complete: %d of %d labels drawn, output saved to %s", len(result.Drawn()), len(result.Labels), outputPath)
	return result
}

// overlay runs extraction, matching and rendering for one label.
func (p *Pipeline) overlay(src image.Image, canvas draw.Image, label string, box imaging.NormalizedBox) LabelOutcome {
	out := LabelOutcome{Label: label}

	pattern, ok := p.catalog.Lookup(label)
	if !ok {
		Logf("skipping %q: no matching catalog entry", label)
		out.Status = StatusUnknownLabel
		out.Err = fmt.Errorf("%w: %q", ErrUnknownLabel, label)
		return out
	}
	out.Name = pattern.Name
	out.Expected = pattern.Len()

	b := src.Bounds()
	out.Region = imaging.Denormalize(box, b.Dx(), b.Dy())

	stars := detection.FindStarsWithinBox(src, out.Region, out.Expected)
	out.Found = len(stars)
	if out.Found != out.Expected {
		Logf("skipping %q: found %d of %d required stars", label, out.Found, out.Expected)
		out.Status = StatusInsufficientStars
		out.Err = fmt.Errorf("%w: %q found %d of %d", ErrInsufficientStars, label, out.Found, out.Expected)
		return out
	}

	ordered, err := matching.MapAndOrderStars(pattern.Points, stars)
	if err != nil {
		Logf("skipping %q: %v", label, err)
		out.Status = StatusShapeMismatch
		out.Err = fmt.Errorf("%w: %q: %w", ErrShapeMismatch, label, err)
		return out
	}

	imaging.DrawConstellation(canvas, ordered, pattern, p.style)
	out.Status = StatusDrawn
	out.Stars = ordered
	return out
}
