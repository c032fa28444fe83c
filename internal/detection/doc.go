// Package detection finds candidate stars in a night-sky photograph.
//
// # Star Extraction
//
// FindStars and FindStarsWithinBox take a pixel rectangle (usually a decoded
// detector box) and the number of stars the constellation expected there. The
// search follows a fixed ladder of brightness cuts:
//
//  1. Crop the region, clipped to the image and flattened onto black
//  2. Convert to luminance with ITU-R BT.601 weights
//  3. For each cut in StarThresholds (150, 130, 110, 90, 70, 50): mark pixels
//     brighter than the cut and label 8-connected components
//  4. Drop components smaller than MinStarArea pixels
//  5. Stop at the first cut that leaves at least the expected number of blobs
//
// The winning blobs are ordered by area, largest first, and trimmed to the
// expected count.
//
// # Output Contract
//
// The result is all or nothing: either exactly the expected number of stars or
// none. Coordinates are the truncated blob centroids translated back to
// full-image pixel coordinates, so every returned point lies inside the
// searched rectangle.
//
// # Sky Survey
//
// SurveyStars scans a whole image with no box and no expected count. It
// blurs the luminance with a 5x5 Gaussian, labels components above a single
// threshold, rejects blobs outside a radius range and thins out stars closer
// than a minimum distance, brightest first. Each star carries its position
// both in pixels and as a fraction of the image size.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Thread Safety
//
// The functions in this package are stateless and safe for concurrent use.
// Tracef is a package variable and should be set once before use.
package detection
