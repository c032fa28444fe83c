package pipeline

import "errors"

// Halting errors end a run without writing output.
var (
	ErrNoDetections = errors.New("no constellations detected")
	ErrInvalidImage = errors.New("input image unreadable")
	ErrWriteOutput  = errors.New("output image could not be written")
)

// Per-label errors skip one label and let the run continue.
var (
	ErrUnknownLabel      = errors.New("label not in catalog")
	ErrInsufficientStars = errors.New("not enough stars in region")
	ErrShapeMismatch     = errors.New("star count does not match pattern")
)
