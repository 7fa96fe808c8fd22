package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ironsheep/sonartag/internal/actag"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("missing file should give defaults, got %+v", cfg)
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonartag.yaml")
	content := `
log_level: debug
sonar:
  min_range: 0.5
  max_range: 10
  horizontal_aperture: 2.26
family:
  name: custom
  data_bits: 16
  min_hamming_distance: 5
  tag_size: 0.2
  codewords: [0x231b, 0x2ea5]
adaptive_threshold_offset: 4.5
quads_random_seed: 99
decoding_sampler: perspective
decoding_num_bit_corrections: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	d := cfg.Detector
	if d.Sonar.MaxRange != 10 || d.Sonar.HorizontalAperture != 2.26 {
		t.Errorf("sonar = %+v", d.Sonar)
	}
	if d.Family.Name != "custom" || !reflect.DeepEqual(d.Family.Codewords, []uint64{0x231b, 0x2ea5}) {
		t.Errorf("family = %+v", d.Family)
	}
	if d.AdaptiveThresholdOffset != 4.5 || d.DecodingSampler != "perspective" {
		t.Errorf("overrides not applied: offset %g, sampler %q", d.AdaptiveThresholdOffset, d.DecodingSampler)
	}
	if d.QuadsRandomSeed == nil || *d.QuadsRandomSeed != 99 {
		t.Errorf("seed = %v, want 99", d.QuadsRandomSeed)
	}

	// Untouched keys keep their defaults.
	def := actag.DefaultConfig()
	if d.MedianFilterKernelRadius != def.MedianFilterKernelRadius || d.QuadsDistForInlier != def.QuadsDistForInlier {
		t.Errorf("defaults lost: median %d, inlier dist %g", d.MedianFilterKernelRadius, d.QuadsDistForInlier)
	}

	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("Level() = %v, %v, want debug", level, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sonar: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sonartag.yaml")
	seed := int64(5)
	cfg := DefaultConfig()
	cfg.Detector.QuadsRandomSeed = &seed
	cfg.Detector.DecodingMatchMirrored = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("reloaded config differs:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonartag.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("config file is empty")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		is      error
	}{
		{"defaults", func(*Config) {}, false, nil},
		{"empty level", func(c *Config) { c.LogLevel = "" }, false, nil},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true, nil},
		{"bad detector", func(c *Config) { c.Detector.Workers = -3 }, true, actag.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}
