package detector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
)

func writeImageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sky.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake jpeg bytes"), 0o644))
	return path
}

func TestHTTPDetector_Detect(t *testing.T) {
	var gotModel, gotConf, gotFile, gotName string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		gotModel = r.FormValue("model")
		gotConf = r.FormValue("conf")

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotName = hdr.Filename

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"detections": [
			{"class": 1, "confidence": 0.9, "box": [0.5, 0.5, 0.2, 0.3]},
			{"class": 0, "confidence": 0.1, "box": [0.1, 0.1, 0.1, 0.1]},
			{"label": "Cyg", "confidence": 0.8, "box": [0.3, 0.3, 0.1, 0.1]},
			{"class": 1, "confidence": 0.5, "box": [0.7, 0.7, 0.1, 0.1]}
		]}`)
	}))
	defer srv.Close()

	det := NewHTTPDetector(srv.URL, "best.pt", catalog.Taxonomy{"Cas", "Ori"}, 0.25)
	got, err := det.Detect(context.Background(), writeImageFile(t))
	require.NoError(t, err)

	assert.Equal(t, "best.pt", gotModel)
	assert.Equal(t, "0.25", gotConf)
	assert.Equal(t, "fake jpeg bytes", gotFile)
	assert.Equal(t, "sky.jpg", gotName)

	assert.Equal(t, []string{"Ori", "Cyg"}, got.Labels())
	assert.Equal(t, box(0.5, 0.5, 0.2, 0.3), got.Boxes("Ori")[0])
	assert.Len(t, got.Boxes("Ori"), 2)
}

func TestHTTPDetector_Errors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"bad json", http.StatusOK, `{"detections": [`},
		{"unknown class", http.StatusOK, `{"detections": [{"class": 9, "confidence": 1, "box": [0.5, 0.5, 0.1, 0.1]}]}`},
		{"short box", http.StatusOK, `{"detections": [{"class": 0, "confidence": 1, "box": [0.5, 0.5]}]}`},
		{"no class", http.StatusOK, `{"detections": [{"confidence": 1, "box": [0.5, 0.5, 0.1, 0.1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			det := NewHTTPDetector(srv.URL, "", catalog.Taxonomy{"Ori"}, 0.25)
			_, err := det.Detect(context.Background(), writeImageFile(t))
			assert.Error(t, err)
		})
	}
}

func TestHTTPDetector_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"detections": []}`)
	}))
	defer srv.Close()

	det := NewHTTPDetector(srv.URL, "", nil, 0.25)
	got, err := det.Detect(context.Background(), writeImageFile(t))
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestHTTPDetector_MissingImage(t *testing.T) {
	det := NewHTTPDetector("http://127.0.0.1:0", "", nil, 0.25)
	_, err := det.Detect(context.Background(), "/nonexistent/sky.jpg")
	assert.Error(t, err)
}

func TestHTTPDetector_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	det := NewHTTPDetector(srv.URL, "", nil, 0.25)
	_, err := det.Detect(ctx, writeImageFile(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPDetector_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/predict/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, NewHTTPDetector(srv.URL+"/predict", "", nil, 0).CheckHealth(context.Background()))
	assert.Error(t, NewHTTPDetector(srv.URL+"/other", "", nil, 0).CheckHealth(context.Background()))
}
