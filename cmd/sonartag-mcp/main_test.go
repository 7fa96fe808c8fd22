package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/sonartag/internal/actag"
	"github.com/ironsheep/sonartag/internal/config"
	"github.com/ironsheep/sonartag/internal/render"
	"github.com/ironsheep/sonartag/internal/server"
	"github.com/ironsheep/sonartag/internal/sonar"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("SONARTAG_CONFIG", "")
	t.Setenv("SONARTAG_LOG_LEVEL", "")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunVersionAndHelp(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--version"}, "sonartag-mcp dev"},
		{[]string{"-h"}, "Usage: sonartag-mcp"},
		{[]string{"--config", "x.yaml", "help"}, "init-config"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			code, out, _ := runCLI(t, tt.args...)
			if code != 0 {
				t.Errorf("exit code: got %d, want 0", code)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"config without file", []string{"--config"}},
		{"detect without image", []string{"detect"}},
		{"init-config without file", []string{"init-config"}},
		{"unknown command", []string{"frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tt.args...); code != 2 {
				t.Errorf("exit code: got %d, want 2", code)
			}
		})
	}
}

func TestRunInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonartag.yaml")
	if code, _, errOut := runCLI(t, "init-config", path); code != 0 {
		t.Fatalf("init-config failed (%d): %s", code, errOut)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detector.Family.Name != actag.DemoFamily().Name {
		t.Errorf("family: got %q", cfg.Detector.Family.Name)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("decoding_num_bit_corrections: 9\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, errOut := runCLI(t, "--config", path, "detect", "frame.png")
	if code != 1 {
		t.Errorf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(errOut, "invalid configuration") {
		t.Errorf("stderr missing reason:\n%s", errOut)
	}
}

func TestRunDetect(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Detector.Sonar = sonar.Params{MinRange: 1, MaxRange: 3, HorizontalAperture: 1.0}
	cfg.Detector.Family.TagSize = 0.24
	cfg.Detector.MedianFilterKernelRadius = 0
	cfg.Detector.AdaptiveThresholdKernelRadius = 12
	cfg.Detector.AdaptiveThresholdOffset = -10
	cfg.Detector.QuadsUseSameRandomVals = true
	cfgPath := filepath.Join(dir, "sonartag.yaml")
	if err := config.SaveConfig(cfg, cfgPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	img := sonar.NewImage(200, 200)
	if err := render.Draw(img, actag.DemoFamily(), 1, render.Placement{Row: 72, Col: 72, CellSize: 8}); err != nil {
		t.Fatalf("render.Draw failed: %v", err)
	}
	imgPath := filepath.Join(dir, "frame.png")
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img.Gray()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	code, out, errOut := runCLI(t, "-c", cfgPath, "detect", imgPath, filepath.Join(dir, "missing.png"))
	if code != 1 {
		t.Errorf("exit code with a missing image: got %d, want 1", code)
	}
	if !strings.Contains(errOut, "load failed") {
		t.Errorf("stderr missing load failure:\n%s", errOut)
	}

	var result server.DetectResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("stdout is not one JSON result: %v\n%s", err, out)
	}
	if result.Count != 1 || result.Tags[0].ID != 1 {
		t.Errorf("result: got %+v, want tag 1", result)
	}
}
