// Package imaging provides the raster plumbing for the constellation overlay
// pipeline: decoding and saving image files, converting detector boxes into
// pixel rectangles, cutting regions out of an image, and drawing a matched
// pattern back onto it.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward. Rectangles are
// half-open: Min is inclusive, Max is exclusive.
//
// Detector boxes arrive as NormalizedBox values (center-form, fractions of the
// image size). Denormalize turns one into a PixelRect using integer
// truncation throughout, so the conversion is deterministic. A PixelRect may
// extend past the image; CropRegion clips it and reports an empty overlap
// instead of failing.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Decoded images held by the cache are
// shared and must be treated as read-only; NewCanvas returns a private copy
// to draw on. DrawConstellation mutates only the image it is given.
//
// # Formats
//
// Open decodes PNG, JPEG, GIF, BMP, TIFF and WebP and applies EXIF
// orientation. Save picks the encoder from the output extension (PNG, JPEG,
// GIF, TIFF, BMP).
package imaging
