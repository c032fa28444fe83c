package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// Environment variable names.
const (
	EnvDetectorURL   = "NIGHTGUIDE_DETECTOR_URL"
	EnvModelPath     = "NIGHTGUIDE_MODEL_PATH"
	EnvLabelsPath    = "NIGHTGUIDE_LABELS_PATH"
	EnvCatalogPath   = "NIGHTGUIDE_CATALOG_PATH"
	EnvConfidence    = "NIGHTGUIDE_CONFIDENCE"
	EnvDetectTimeout = "NIGHTGUIDE_DETECT_TIMEOUT"
	EnvLogLevel      = "NIGHTGUIDE_LOG_LEVEL"
	EnvLineColor     = "NIGHTGUIDE_LINE_COLOR"
	EnvMarkerColor   = "NIGHTGUIDE_MARKER_COLOR"
	EnvLabelColor    = "NIGHTGUIDE_LABEL_COLOR"
)

// Config holds process settings.
type Config struct {
	DetectorURL   string
	ModelPath     string
	LabelsPath    string
	CatalogPath   string
	Confidence    float64
	DetectTimeout time.Duration
	LogLevel      string
	LineColor     string
	MarkerColor   string
	LabelColor    string
}

// Default returns the settings used when no variable is set.
func Default() *Config {
	return &Config{
		Confidence:    0.25,
		DetectTimeout: 30 * time.Second,
		LogLevel:      "info",
		LineColor:     "#800080",
		MarkerColor:   "#FFA500",
		LabelColor:    "#00FFFF",
	}
}

// FromEnv loads dotenvPath (skipped when it does not exist) into the
// environment without overriding variables already set, then reads the
// configuration from the environment. The result is validated.
func FromEnv(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
			}
		}
	}

	cfg := Default()
	cfg.DetectorURL = getEnv(EnvDetectorURL, cfg.DetectorURL)
	cfg.ModelPath = getEnv(EnvModelPath, cfg.ModelPath)
	cfg.LabelsPath = getEnv(EnvLabelsPath, cfg.LabelsPath)
	cfg.CatalogPath = getEnv(EnvCatalogPath, cfg.CatalogPath)
	cfg.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.LogLevel))
	cfg.LineColor = getEnv(EnvLineColor, cfg.LineColor)
	cfg.MarkerColor = getEnv(EnvMarkerColor, cfg.MarkerColor)
	cfg.LabelColor = getEnv(EnvLabelColor, cfg.LabelColor)

	if v := os.Getenv(EnvConfidence); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvConfidence, err)
		}
		cfg.Confidence = f
	}
	if v := os.Getenv(EnvDetectTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvDetectTimeout, err)
		}
		cfg.DetectTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and color syntax.
func (c *Config) Validate() error {
	var err error
	if c.Confidence < 0 || c.Confidence > 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be in [0,1], got %v", EnvConfidence, c.Confidence))
	}
	if c.DetectTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive, got %v", EnvDetectTimeout, c.DetectTimeout))
	}
	for _, f := range []struct{ name, hex string }{
		{EnvLineColor, c.LineColor},
		{EnvMarkerColor, c.MarkerColor},
		{EnvLabelColor, c.LabelColor},
	} {
		if _, perr := imaging.ParseColor(f.hex); perr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", f.name, perr))
		}
	}
	return err
}

// Debug reports whether verbose logging was requested.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// Style returns the render style with the configured colors applied.
func (c *Config) Style() (imaging.Style, error) {
	style := imaging.DefaultStyle()
	for _, f := range []struct {
		hex string
		dst *color.Color
	}{
		{c.LineColor, &style.LineColor},
		{c.MarkerColor, &style.MarkerColor},
		{c.LabelColor, &style.LabelColor},
	} {
		col, err := imaging.ParseColor(f.hex)
		if err != nil {
			return imaging.Style{}, err
		}
		*f.dst = col
	}
	return style, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
