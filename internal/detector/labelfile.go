package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// LabelFileDetector reads detections that a YOLO model already wrote to
// disk. For an image "sky/m42.jpg" it reads "m42.txt" from Dir, or from
// "sky/" when Dir is empty. Each line is
//
//	class x_center y_center width height [confidence]
//
// with the class index resolved through Taxonomy. Lines carrying a
// confidence below Confidence are dropped. A missing label file means
// nothing was detected.
type LabelFileDetector struct {
	Taxonomy   catalog.Taxonomy
	Dir        string
	Confidence float64
}

// LabelPath returns the label file consulted for imagePath.
func (l *LabelFileDetector) LabelPath(imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := l.Dir
	if dir == "" {
		dir = filepath.Dir(imagePath)
	}
	return filepath.Join(dir, stem+".txt")
}

// Detect parses the label file for imagePath.
func (l *LabelFileDetector) Detect(ctx context.Context, imagePath string) (*Detections, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.LabelPath(imagePath)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewDetections(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	out := NewDetections()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 && len(fields) != 6 {
			return nil, fmt.Errorf("%s:%d: want 5 or 6 fields, got %d", path, lineNo, len(fields))
		}

		class, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad class: %w", path, lineNo, err)
		}
		vals := make([]float64, len(fields)-1)
		for i, s := range fields[1:] {
			if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("%s:%d: bad value %q: %w", path, lineNo, s, err)
			}
		}
		if len(vals) == 5 && vals[4] < l.Confidence {
			continue
		}

		label, err := l.Taxonomy.Name(class)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out.Add(label, imaging.NormalizedBox{
			XCenter: vals[0],
			YCenter: vals[1],
			Width:   vals[2],
			Height:  vals[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	return out, nil
}
