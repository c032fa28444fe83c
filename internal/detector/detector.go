package detector

import (
	"context"
)

// Detector finds constellations in an image file.
type Detector interface {
	// Detect returns the labels found in the image at imagePath with their
	// normalized boxes. An image with nothing in it yields empty Detections
	// and a nil error.
	Detect(ctx context.Context, imagePath string) (*Detections, error)
}

// Func adapts an ordinary function to the Detector interface.
type Func func(ctx context.Context, imagePath string) (*Detections, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, imagePath string) (*Detections, error) {
	return f(ctx, imagePath)
}

// StaticDetector returns the same answer for every image.
type StaticDetector struct {
	Detections *Detections
	Err        error
}

// Detect returns the fixed detections or error.
func (s *StaticDetector) Detect(ctx context.Context, _ string) (*Detections, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Detections == nil {
		return NewDetections(), nil
	}
	return s.Detections, nil
}
