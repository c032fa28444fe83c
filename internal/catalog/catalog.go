package catalog

import (
	_ "embed"
	"fmt"
	"image"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed constellations.yaml
var embeddedCatalog []byte

// Edge connects two points of a pattern by index.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Pattern is the canonical shape of one named constellation.
type Pattern struct {
	// Code is the label code the detector emits (e.g. "Ori").
	Code string `json:"code"`

	// Name is the display name drawn next to the pattern (e.g. "Orion").
	Name string `json:"name"`

	// Points is the ordered reference point set.
	Points []image.Point `json:"points"`

	// Edges are the connecting lines, as index pairs into Points.
	Edges []Edge `json:"edges"`
}

// Len returns the number of reference points.
func (p *Pattern) Len() int {
	return len(p.Points)
}

// Catalog is a read-only set of patterns keyed by label code.
type Catalog struct {
	codes    []string
	patterns map[string]*Pattern
}

// entry mirrors one record of the YAML catalog file.
type entry struct {
	Code   string   `yaml:"code"`
	Name   string   `yaml:"name"`
	Points [][2]int `yaml:"points"`
	Edges  [][2]int `yaml:"edges"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary. It is parsed on first
// use and shared afterwards.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCatalog)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is like Default but panics if the compiled-in catalog is
// invalid.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
//
// Every entry must have a unique, non-empty code and at least one point, and
// every edge index must fall inside [0, len(points)).
func Parse(data []byte) (*Catalog, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		codes:    make([]string, 0, len(entries)),
		patterns: make(map[string]*Pattern, len(entries)),
	}
	for i, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("catalog entry %d: missing code", i)
		}
		if _, dup := c.patterns[e.Code]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate code %q", i, e.Code)
		}
		if len(e.Points) == 0 {
			return nil, fmt.Errorf("pattern %q: no points", e.Code)
		}

		p := &Pattern{
			Code:   e.Code,
			Name:   e.Name,
			Points: make([]image.Point, len(e.Points)),
			Edges:  make([]Edge, len(e.Edges)),
		}
		if p.Name == "" {
			p.Name = e.Code
		}
		for j, pt := range e.Points {
			p.Points[j] = image.Pt(pt[0], pt[1])
		}
		for j, ed := range e.Edges {
			if ed[0] < 0 || ed[0] >= len(p.Points) || ed[1] < 0 || ed[1] >= len(p.Points) {
				return nil, fmt.Errorf("pattern %q: edge %d (%d,%d) out of range for %d points",
					e.Code, j, ed[0], ed[1], len(p.Points))
			}
			p.Edges[j] = Edge{From: ed[0], To: ed[1]}
		}

		c.codes = append(c.codes, e.Code)
		c.patterns[e.Code] = p
	}
	return c, nil
}

// Lookup returns the pattern for a label code. The pattern is shared and must
// not be modified.
func (c *Catalog) Lookup(code string) (*Pattern, bool) {
	p, ok := c.patterns[code]
	return p, ok
}

// Codes returns the label codes in catalog file order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.codes))
	copy(out, c.codes)
	return out
}

// Len returns the number of patterns.
func (c *Catalog) Len() int {
	return len(c.codes)
}
