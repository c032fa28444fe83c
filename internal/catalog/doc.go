// Package catalog holds the canonical constellation patterns and the label
// taxonomy used to translate detector class indices into label codes.
//
// # Patterns
//
// A Pattern is an idealized reference shape: an ordered list of points on an
// arbitrary fixed canvas plus the edges (index pairs) that connect them. The
// point order is significant; every downstream consumer addresses points by
// index.
//
// The default catalog is compiled into the binary from constellations.yaml
// and parsed once by Default(). A replacement catalog can be read from disk
// with Load(). Either way the returned Catalog is immutable: no method
// mutates it, so one instance may be shared by any number of goroutines.
//
// # Taxonomy
//
// Object detectors report class indices. A Taxonomy is the ordered list of
// label names the detector was trained with, read from a YOLO data.yaml file
// (the "names" key, as a list or an index map) or from a plain text file with
// one label per line.
package catalog
