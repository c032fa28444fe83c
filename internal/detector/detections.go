package detector

import (
	"encoding/json"

	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// Entry is one label and its boxes in detection order.
type Entry struct {
	Label string                  `json:"label"`
	Boxes []imaging.NormalizedBox `json:"boxes"`
}

// Detections maps label codes to their boxes. Labels keep the order in which
// they were first added and each label's boxes keep their insertion order.
// The zero value is empty and ready to use.
type Detections struct {
	order []string
	boxes map[string][]imaging.NormalizedBox
}

// NewDetections returns an empty mapping.
func NewDetections() *Detections {
	return &Detections{boxes: make(map[string][]imaging.NormalizedBox)}
}

// Add appends box to label's boxes, registering label on first use.
func (d *Detections) Add(label string, box imaging.NormalizedBox) {
	if d.boxes == nil {
		d.boxes = make(map[string][]imaging.NormalizedBox)
	}
	if _, ok := d.boxes[label]; !ok {
		d.order = append(d.order, label)
	}
	d.boxes[label] = append(d.boxes[label], box)
}

// Labels returns the labels in first-seen order.
func (d *Detections) Labels() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.order...)
}

// Boxes returns label's boxes in detection order.
func (d *Detections) Boxes(label string) []imaging.NormalizedBox {
	if d == nil {
		return nil
	}
	return d.boxes[label]
}

// Len returns the number of distinct labels.
func (d *Detections) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Empty reports whether no label was detected.
func (d *Detections) Empty() bool {
	return d.Len() == 0
}

// Entries returns the mapping as an ordered list.
func (d *Detections) Entries() []Entry {
	out := make([]Entry, 0, d.Len())
	for _, label := range d.Labels() {
		out = append(out, Entry{Label: label, Boxes: d.boxes[label]})
	}
	return out
}

// FromEntries builds a mapping from an ordered list. Repeated labels merge
// into the first occurrence.
func FromEntries(entries []Entry) *Detections {
	d := NewDetections()
	for _, e := range entries {
		for _, b := range e.Boxes {
			d.Add(e.Label, b)
		}
	}
	return d
}

// MarshalJSON encodes the mapping as its ordered entry list.
func (d *Detections) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Entries())
}

// UnmarshalJSON decodes an ordered entry list.
func (d *Detections) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*d = *FromEntries(entries)
	return nil
}
