package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/config"
	"github.com/ironsheep/nightguide-mcp/internal/detection"
	"github.com/ironsheep/nightguide-mcp/internal/detector"
	"github.com/ironsheep/nightguide-mcp/internal/pipeline"
)

func main() {
	in := flag.String("in", "", "input image")
	out := flag.String("out", "", "annotated output image (format from extension)")
	labels := flag.String("labels", "", "label taxonomy file (overrides NIGHTGUIDE_LABELS_PATH)")
	detDir := flag.String("detections", "", "directory of YOLO label files named <image stem>.txt")
	url := flag.String("url", "", "inference service URL (overrides NIGHTGUIDE_DETECTOR_URL)")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: nightguide -in IMG -out OUT [-labels FILE] [-detections DIR] [-url URL]")
		os.Exit(2)
	}

	if err := run(os.Stdout, *in, *out, *labels, *detDir, *url); err != nil {
		log.Printf("nightguide: %v", err)
		os.Exit(1)
	}
}

// run executes one pipeline invocation and writes one line per label to w.
func run(w io.Writer, in, out, labels, detDir, url string) error {
	cfg, err := config.FromEnv(".env")
	if err != nil {
		return err
	}
	if cfg.Debug() {
		detection.Tracef = log.Printf
	}
	if labels != "" {
		cfg.LabelsPath = labels
	}
	if url != "" {
		cfg.DetectorURL = url
	}

	cat, err := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	}
	if err != nil {
		return err
	}

	var taxonomy catalog.Taxonomy
	if cfg.LabelsPath != "" {
		if taxonomy, err = catalog.LoadTaxonomy(cfg.LabelsPath); err != nil {
			return err
		}
	}

	var det detector.Detector
	switch {
	case detDir != "":
		det = &detector.LabelFileDetector{Taxonomy: taxonomy, Dir: detDir, Confidence: cfg.Confidence}
	case cfg.DetectorURL != "":
		det = detector.NewHTTPDetector(cfg.DetectorURL, cfg.ModelPath, taxonomy, cfg.Confidence)
	default:
		return errors.New("no detector: pass -detections or -url")
	}

	style, err := cfg.Style()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DetectTimeout)
	defer cancel()

	res := pipeline.New(cat, det, pipeline.WithStyle(style)).Run(ctx, in, out)
	for _, l := range res.Labels {
		line := fmt.Sprintf("%-5s %-20s %-18s stars %d/%d", l.Label, l.Name, l.Status, l.Found, l.Expected)
		if l.Err != nil && l.Status != pipeline.StatusDrawn {
			line += "  " + l.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	if !res.Success {
		return res.Err
	}
	fmt.Fprintf(w, "%d of %d constellations drawn, saved to %s\n", len(res.Drawn()), len(res.Labels), res.Output)
	return nil
}
