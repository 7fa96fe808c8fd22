package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/sonartag/internal/actag"
	"github.com/ironsheep/sonartag/internal/config"
	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/imaging"
	"github.com/ironsheep/sonartag/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "sonartag-mcp - AcTag detection in sonar images, as an MCP server or CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: sonartag-mcp [--config <file>] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  (none)               Serve MCP over stdin/stdout")
	fmt.Fprintln(w, "  detect <image>...    Detect tags and print them as JSON")
	fmt.Fprintln(w, "  init-config <file>   Write the default configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --config, -c <file>  YAML configuration (default $SONARTAG_CONFIG)")
	fmt.Fprintln(w, "  --version, -v        Print version information")
	fmt.Fprintln(w, "  --help, -h           Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SONARTAG_CONFIG=<file>       Configuration file")
	fmt.Fprintln(w, "  SONARTAG_LOG_LEVEL=debug     Override the configured log level")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "In server mode stdout carries the MCP protocol; logs go to stderr.")
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	configPath := os.Getenv("SONARTAG_CONFIG")

flags:
	for len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "sonartag-mcp %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return 0
		case "--help", "-h", "help":
			printHelp(stdout)
			return 0
		case "--config", "-c":
			if len(args) < 2 {
				fmt.Fprintln(stderr, "--config needs a file argument")
				return 2
			}
			configPath = args[1]
			args = args[2:]
		default:
			break flags
		}
	}

	if len(args) > 0 && args[0] == "init-config" {
		if len(args) != 2 {
			fmt.Fprintln(stderr, "usage: sonartag-mcp init-config <file>")
			return 2
		}
		if err := config.CreateDefaultConfigFile(args[1]); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if env := os.Getenv("SONARTAG_LOG_LEVEL"); env != "" {
		cfg.LogLevel = env
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Logs go to stderr (stdout is for MCP protocol and JSON output)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	det, err := actag.New(cfg.Detector, actag.WithLogger(logger))
	if err != nil {
		logger.Error("invalid configuration", "path", configPath, "error", err)
		return 1
	}

	if len(args) > 0 {
		switch args[0] {
		case "detect":
			if len(args) < 2 {
				fmt.Fprintln(stderr, "usage: sonartag-mcp detect <image>...")
				return 2
			}
			return detect(det, args[1:], stdout, logger)
		default:
			fmt.Fprintf(stderr, "unknown command %q (see --help)\n", args[0])
			return 2
		}
	}

	logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
	server.Version = Version
	srv := server.New(det, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

// detect prints one JSON result per image. Images that fail to load are
// logged and reported through the exit code.
func detect(det *actag.Detector, paths []string, stdout io.Writer, logger *slog.Logger) int {
	cache := imaging.NewImageCache()
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	code := 0
	for _, path := range paths {
		img, err := cache.Load(path)
		if err != nil {
			logger.Error("load failed", "path", path, "error", err)
			code = 1
			continue
		}
		tags, err := det.Detect(img)
		if err != nil {
			logger.Error("detection failed", "path", path, "error", err)
			code = 1
			continue
		}
		cache.Evict(path)
		if tags == nil {
			tags = []detection.DetectedTag{}
		}
		result := server.DetectResult{Path: path, Rows: img.Rows, Cols: img.Cols, Count: len(tags), Tags: tags}
		if err := enc.Encode(result); err != nil {
			logger.Error("encode failed", "path", path, "error", err)
			return 1
		}
	}
	return code
}
