package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// DefaultConfidence is the minimum score a detection needs to be kept.
const DefaultConfidence = 0.25

// HTTPDetector sends images to an external inference service.
//
// The image is posted as multipart form data with the fields "file" (the
// image bytes), "model" (ModelRef) and "conf" (Confidence). The service
// answers with
//
//	{"detections": [{"class": 3, "confidence": 0.91, "box": [xc, yc, w, h]}]}
//
// where box is normalized center form. A detection may carry "label"
// instead of "class"; otherwise the class index is resolved through
// Taxonomy.
type HTTPDetector struct {
	URL        string
	ModelRef   string
	Taxonomy   catalog.Taxonomy
	Confidence float64
	Client     *http.Client
}

// NewHTTPDetector returns a detector for the service at url.
func NewHTTPDetector(url, modelRef string, taxonomy catalog.Taxonomy, confidence float64) *HTTPDetector {
	return &HTTPDetector{
		URL:        url,
		ModelRef:   modelRef,
		Taxonomy:   taxonomy,
		Confidence: confidence,
		Client:     &http.Client{},
	}
}

type wireDetection struct {
	Class      *int      `json:"class"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

// Detect posts the image and translates the response.
func (d *HTTPDetector) Detect(ctx context.Context, imagePath string) (*Detections, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if d.ModelRef != "" {
		if err := writer.WriteField("model", d.ModelRef); err != nil {
			return nil, fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(d.Confidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write conf field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []wireDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := NewDetections()
	for i, det := range result.Detections {
		if det.Confidence < d.Confidence {
			continue
		}
		label, err := d.label(det)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		if len(det.Box) != 4 {
			return nil, fmt.Errorf("detection %d: box has %d values, want 4", i, len(det.Box))
		}
		out.Add(label, imaging.NormalizedBox{
			XCenter: det.Box[0],
			YCenter: det.Box[1],
			Width:   det.Box[2],
			Height:  det.Box[3],
		})
	}
	return out, nil
}

// CheckHealth reports whether the service answers on its /health endpoint.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(d.URL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPDetector) label(det wireDetection) (string, error) {
	if det.Label != "" {
		return det.Label, nil
	}
	if det.Class == nil {
		return "", fmt.Errorf("neither class nor label given")
	}
	return d.Taxonomy.Name(*det.Class)
}

func (d *HTTPDetector) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}
