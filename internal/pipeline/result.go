package pipeline

import (
	"image"

	"go.uber.org/multierr"

	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// Status is the outcome of one detected label.
type Status string

const (
	StatusDrawn             Status = "drawn"
	StatusUnknownLabel      Status = "unknown_label"
	StatusInsufficientStars Status = "insufficient_stars"
	StatusShapeMismatch     Status = "shape_mismatch"
)

// LabelOutcome records what happened to one detected label.
type LabelOutcome struct {
	Label  string `json:"label"`
	Name   string `json:"name,omitempty"`
	Status Status `json:"status"`

	// Region is the decoded pixel rectangle of the label's first box.
	Region imaging.PixelRect `json:"region"`

	// Expected is the pattern's point count; Found is how many stars the
	// region supplied.
	Expected int `json:"expected"`
	Found    int `json:"found"`

	// Stars holds the matched positions in pattern order when Status is
	// StatusDrawn.
	Stars []image.Point `json:"-"`

	// Err wraps one of the per-label sentinel errors; nil when drawn.
	Err error `json:"-"`
}

// Result is the outcome of a pipeline run.
//
// Success means the run executed: the detector reported at least one label,
// the input image decoded and the output image was written. It does not
// mean any constellation was drawn; see Drawn.
type Result struct {
	Success bool           `json:"success"`
	Err     error          `json:"-"`
	Output  string         `json:"output,omitempty"`
	Width   int            `json:"width,omitempty"`
	Height  int            `json:"height,omitempty"`
	Labels  []LabelOutcome `json:"labels"`
}

// Drawn returns the labels that were rendered, in processing order.
func (r *Result) Drawn() []string {
	var out []string
	for _, l := range r.Labels {
		if l.Status == StatusDrawn {
			out = append(out, l.Label)
		}
	}
	return out
}

// SkipErr combines the errors of every skipped label, or returns nil when
// none were skipped.
func (r *Result) SkipErr() error {
	var err error
	for _, l := range r.Labels {
		err = multierr.Append(err, l.Err)
	}
	return err
}

func failed(err error) *Result {
	return &Result{Err: err, Labels: []LabelOutcome{}}
}
