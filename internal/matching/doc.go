// Package matching registers an unordered set of detected star positions
// onto an ordered canonical constellation pattern.
//
// The detector and the star extractor say nothing about which detected star
// is which; Align recovers that correspondence under a rigid motion
// (rotation plus translation). Mirror images are never accepted: the
// least-squares rotation is forced to a proper rotation when the raw SVD
// solution is a reflection, which matters for patterns that are mirror
// symmetric up to a handedness flip.
//
// Matching is scoped to 2D. Scale is not modeled, so canonical and detected
// coordinates are expected to be in comparable units.
package matching
