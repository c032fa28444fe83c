// Package pipeline overlays named constellations onto a night-sky photograph.
//
// A run asks the detector which constellations appear in the image and
// where, then for each detected label:
//
//  1. looks the label up in the catalog
//  2. decodes its first box into a pixel rectangle
//  3. extracts exactly as many bright stars from that rectangle as the
//     pattern has points
//  4. matches the stars to the pattern's points under a rigid motion
//  5. draws the pattern's edges, star markers and name
//
// The annotated image is written once every label has been handled.
//
// # Outcomes
//
// Run returns a *Result instead of an error. Two conditions halt a run with
// no output file: an empty or failed detection (ErrNoDetections) and an
// unreadable input (ErrInvalidImage). A failed write reports ErrWriteOutput.
// Everything else is per label: ErrUnknownLabel, ErrInsufficientStars and
// ErrShapeMismatch skip that label, are recorded in Result.Labels, and can be
// collected with Result.SkipErr.
//
// # Logging
//
// Diagnostics go through Logf, which defaults to log.Printf and can be
// replaced or muted with SetLogger.
package pipeline
