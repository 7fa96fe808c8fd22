package actag

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// ErrInvalidConfig is returned by New for configurations that cannot run.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Config holds every detector option. Field names follow the YAML keys.
type Config struct {
	Sonar  sonar.Params    `yaml:"sonar"`
	Family sonar.TagFamily `yaml:"family"`

	MedianFilterKernelRadius      int     `yaml:"median_filter_kernel_radius"`
	AdaptiveThresholdKernelRadius int     `yaml:"adaptive_threshold_kernel_radius"`
	AdaptiveThresholdOffset       float64 `yaml:"adaptive_threshold_offset"`

	ContoursTagSizeTolerance  float64 `yaml:"contours_tag_size_tolerance"`
	ContoursTagAreaTolerance  float64 `yaml:"contours_tag_area_tolerance"`
	ContoursMinTagAreaRatio   float64 `yaml:"contours_min_tag_area_ratio"`
	ContoursRejectBlackShapes bool    `yaml:"contours_reject_black_shapes"`
	ContoursRejectWhiteShapes bool    `yaml:"contours_reject_white_shapes"`
	ContoursRejectByTagSize   bool    `yaml:"contours_reject_by_tag_size"`
	ContoursRejectByArea      bool    `yaml:"contours_reject_by_area"`

	// QuadsRandomSeed fixes the RANSAC draws. Nil seeds every contour from
	// entropy.
	QuadsRandomSeed          *int64  `yaml:"quads_random_seed"`
	QuadsPointsPerLineRatio  float64 `yaml:"quads_points_per_line_ratio"`
	QuadsDistForInlier       float64 `yaml:"quads_dist_for_inlier"`
	QuadsDesiredInlierRatio  float64 `yaml:"quads_desired_inlier_ratio"`
	QuadsRequiredInlierRatio float64 `yaml:"quads_required_inlier_ratio"`
	QuadsParallelThreshold   float64 `yaml:"quads_parallel_threshold"`
	QuadsUseSameRandomVals   bool    `yaml:"quads_use_same_random_vals"`
	QuadsStartingRollVal     int64   `yaml:"quads_starting_roll_val"`

	DecodingNumBitCorrections int    `yaml:"decoding_num_bit_corrections"`
	DecodingMatchMirrored     bool   `yaml:"decoding_match_mirrored"`
	DecodingSampler           string `yaml:"decoding_sampler"` // affine or perspective

	// Workers bounds the optimized path's concurrency. Zero uses NumCPU.
	Workers      int  `yaml:"workers"`
	UseOptimized bool `yaml:"use_optimized"`

	// BandExecutor schedules the optimized filters: "pool" splits rows into
	// Workers bands, "bild" hands them to bild's GOMAXPROCS scheduler.
	BandExecutor string `yaml:"band_executor"`
}

// Band executor names accepted by Config.BandExecutor.
const (
	ExecutorPool = "pool"
	ExecutorBild = "bild"
)

// DefaultConfig returns the stock detector settings with the demo family.
func DefaultConfig() Config {
	return Config{
		Sonar:  sonar.Params{MinRange: 0.1, MaxRange: 1.5, HorizontalAperture: 1.0472},
		Family: DemoFamily(),

		MedianFilterKernelRadius:      4,
		AdaptiveThresholdKernelRadius: 8,
		AdaptiveThresholdOffset:       1,

		ContoursTagSizeTolerance:  0.2,
		ContoursTagAreaTolerance:  0.2,
		ContoursMinTagAreaRatio:   0.1,
		ContoursRejectBlackShapes: true,
		ContoursRejectByTagSize:   true,
		ContoursRejectByArea:      true,

		QuadsPointsPerLineRatio:  0.1,
		QuadsDistForInlier:       2.5,
		QuadsDesiredInlierRatio:  0.85,
		QuadsRequiredInlierRatio: 0.8,
		QuadsParallelThreshold:   0.9,
		QuadsStartingRollVal:     123456,

		DecodingNumBitCorrections: 2,
		DecodingSampler:           detection.SamplerAffine.String(),

		Workers:      runtime.NumCPU(),
		UseOptimized: true,
		BandExecutor: ExecutorPool,
	}
}

// Validate reports the first problem that would stop the detector running,
// wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.Sonar.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Family.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if k, limit := c.DecodingNumBitCorrections, c.Family.MaxCorrections(); k < 0 || k >= limit {
		return fmt.Errorf("%w: decoding_num_bit_corrections %d must be in [0, %d) for %q (hamming distance %d)",
			ErrInvalidConfig, k, limit, c.Family.Name, c.Family.MinHammingDistance)
	}
	if c.MedianFilterKernelRadius < 0 {
		return fmt.Errorf("%w: median_filter_kernel_radius %d is negative", ErrInvalidConfig, c.MedianFilterKernelRadius)
	}
	if c.AdaptiveThresholdKernelRadius < 0 {
		return fmt.Errorf("%w: adaptive_threshold_kernel_radius %d is negative", ErrInvalidConfig, c.AdaptiveThresholdKernelRadius)
	}
	if math.IsNaN(c.AdaptiveThresholdOffset) || math.IsInf(c.AdaptiveThresholdOffset, 0) {
		return fmt.Errorf("%w: adaptive_threshold_offset must be finite", ErrInvalidConfig)
	}

	if c.ContoursRejectBlackShapes && c.ContoursRejectWhiteShapes {
		return fmt.Errorf("%w: rejecting both black and white shapes leaves nothing to detect", ErrInvalidConfig)
	}

	ranges := []struct {
		name    string
		v       float64
		lo, hi  float64
		openLow bool
	}{
		{"contours_tag_size_tolerance", c.ContoursTagSizeTolerance, 0, math.Inf(1), false},
		{"contours_tag_area_tolerance", c.ContoursTagAreaTolerance, 0, math.Inf(1), false},
		{"contours_min_tag_area_ratio", c.ContoursMinTagAreaRatio, 0, 1, false},
		{"quads_points_per_line_ratio", c.QuadsPointsPerLineRatio, 0, 1, true},
		{"quads_dist_for_inlier", c.QuadsDistForInlier, 0, math.Inf(1), true},
		{"quads_desired_inlier_ratio", c.QuadsDesiredInlierRatio, 0, 1, true},
		{"quads_required_inlier_ratio", c.QuadsRequiredInlierRatio, 0, 1, true},
		{"quads_parallel_threshold", c.QuadsParallelThreshold, 0, 1, false},
	}
	for _, r := range ranges {
		if math.IsNaN(r.v) || r.v < r.lo || (r.openLow && r.v == r.lo) || r.v > r.hi {
			low := "["
			if r.openLow {
				low = "("
			}
			return fmt.Errorf("%w: %s %g outside %s%g, %g]", ErrInvalidConfig, r.name, r.v, low, r.lo, r.hi)
		}
	}

	if _, err := detection.ParseSampler(c.DecodingSampler); err != nil {
		return fmt.Errorf("%w: decoding_sampler: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidConfig, c.Workers)
	}
	switch c.BandExecutor {
	case "", ExecutorPool, ExecutorBild:
	default:
		return fmt.Errorf("%w: band_executor %q (want %s or %s)", ErrInvalidConfig, c.BandExecutor, ExecutorPool, ExecutorBild)
	}
	return nil
}

func (c Config) contourOptions() detection.ContourOptions {
	return detection.ContourOptions{
		Params:            c.Sonar,
		TagSize:           c.Family.TagSize,
		SizeTolerance:     c.ContoursTagSizeTolerance,
		AreaTolerance:     c.ContoursTagAreaTolerance,
		MinAreaRatio:      c.ContoursMinTagAreaRatio,
		RejectBlackShapes: c.ContoursRejectBlackShapes,
		RejectWhiteShapes: c.ContoursRejectWhiteShapes,
		RejectByTagSize:   c.ContoursRejectByTagSize,
		RejectByArea:      c.ContoursRejectByArea,
	}
}

func (c Config) quadOptions() detection.QuadOptions {
	return detection.QuadOptions{
		PointsPerLineRatio:  c.QuadsPointsPerLineRatio,
		DistForInlier:       c.QuadsDistForInlier,
		DesiredInlierRatio:  c.QuadsDesiredInlierRatio,
		RequiredInlierRatio: c.QuadsRequiredInlierRatio,
		ParallelThreshold:   c.QuadsParallelThreshold,
		Seed:                c.QuadsRandomSeed,
		UseSameRandomVals:   c.QuadsUseSameRandomVals,
		StartingRoll:        c.QuadsStartingRollVal,
	}
}

func (c Config) decodeOptions(s detection.Sampler) detection.DecodeOptions {
	return detection.DecodeOptions{
		Corrections:   c.DecodingNumBitCorrections,
		MatchMirrored: c.DecodingMatchMirrored,
		Sampler:       s,
	}
}
