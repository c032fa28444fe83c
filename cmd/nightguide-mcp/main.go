package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/config"
	"github.com/ironsheep/nightguide-mcp/internal/detection"
	"github.com/ironsheep/nightguide-mcp/internal/detector"
	"github.com/ironsheep/nightguide-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("nightguide-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("nightguide-mcp - MCP server for constellation overlays")
			fmt.Println()
			fmt.Println("Usage: nightguide-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  NIGHTGUIDE_DETECTOR_URL=...      Inference service for constellation_overlay")
			fmt.Println("  NIGHTGUIDE_MODEL_PATH=...        Model reference sent to the detector")
			fmt.Println("  NIGHTGUIDE_LABELS_PATH=...       Label taxonomy (data.yaml or one label per line)")
			fmt.Println("  NIGHTGUIDE_CATALOG_PATH=...      Constellation catalog override (YAML)")
			fmt.Println("  NIGHTGUIDE_CONFIDENCE=0.25       Detection confidence threshold")
			fmt.Println("  NIGHTGUIDE_DETECT_TIMEOUT=30s    Deadline for one overlay run")
			fmt.Println("  NIGHTGUIDE_LOG_LEVEL=debug       Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.FromEnv(".env")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Debug() {
		log.Printf("NightGuide MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		detection.Tracef = log.Printf
	}

	style, err := cfg.Style()
	if err != nil {
		log.Fatalf("Invalid style: %v", err)
	}

	opts := []server.Option{
		server.WithStyle(style),
		server.WithTimeout(cfg.DetectTimeout),
	}

	if cfg.CatalogPath != "" {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		opts = append(opts, server.WithCatalog(cat))
	}

	if cfg.DetectorURL != "" {
		var taxonomy catalog.Taxonomy
		if cfg.LabelsPath != "" {
			taxonomy, err = catalog.LoadTaxonomy(cfg.LabelsPath)
			if err != nil {
				log.Fatalf("Failed to load labels: %v", err)
			}
		}

		det := detector.NewHTTPDetector(cfg.DetectorURL, cfg.ModelPath, taxonomy, cfg.Confidence)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := det.CheckHealth(ctx); err != nil {
			log.Printf("Detector at %s not reachable yet: %v", cfg.DetectorURL, err)
		}
		cancel()
		opts = append(opts, server.WithDetector(det))
	} else if cfg.Debug() {
		log.Printf("No detector configured; constellation_overlay requires inline detections")
	}

	server.Version = Version
	srv := server.New(opts...)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
