package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Taxonomy maps detector class indices to label codes.
type Taxonomy []string

// Name resolves a class index.
func (t Taxonomy) Name(index int) (string, error) {
	if index < 0 || index >= len(t) {
		return "", fmt.Errorf("class index %d outside taxonomy of %d labels", index, len(t))
	}
	return t[index], nil
}

// LoadTaxonomy reads a label taxonomy file. Files ending in .yaml or .yml are
// read as YOLO dataset descriptors; anything else is one label per line.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseTaxonomyYAML(data)
	default:
		return ParseTaxonomyText(data), nil
	}
}

// ParseTaxonomyText reads one label per line, skipping blank lines.
func ParseTaxonomyText(data []byte) Taxonomy {
	var t Taxonomy
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			t = append(t, line)
		}
	}
	return t
}

// ParseTaxonomyYAML reads the "names" key of a YOLO data.yaml. Both forms
// the training tools write are accepted:
//
//	names: [Aqr, Ari, Cnc]
//
//	names:
//	  0: Aqr
//	  1: Ari
func ParseTaxonomyYAML(data []byte) (Taxonomy, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("failed to decode names list: %w", err)
		}
		return Taxonomy(names), nil

	case yaml.MappingNode:
		var byIndex map[int]string
		if err := doc.Names.Decode(&byIndex); err != nil {
			return nil, fmt.Errorf("failed to decode names map: %w", err)
		}
		indices := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		t := make(Taxonomy, len(indices))
		for pos, i := range indices {
			if i != pos {
				return nil, fmt.Errorf("class indices are not contiguous: missing %d", pos)
			}
			t[pos] = byIndex[i]
		}
		return t, nil

	case 0:
		return nil, fmt.Errorf("taxonomy has no names key")
	default:
		return nil, fmt.Errorf("unsupported names value")
	}
}
