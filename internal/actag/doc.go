// Package actag runs the complete AcTag detection pipeline on sonar images.
//
// A Detector is built once from a validated Config and then applied to any
// number of images:
//
//	det, err := actag.New(cfg, actag.WithLogger(logger))
//	if err != nil {
//		return err // wraps actag.ErrInvalidConfig
//	}
//	tags, err := det.Detect(img)
//
// # Execution Paths
//
// DetectReference runs each stage sequentially with the direct median and
// threshold filters. DetectOptimized runs the histogram median and
// summed-area threshold over row bands and fits contours concurrently. For
// the same image and configuration both paths return identical tags,
// including with a fixed seed, because every contour draws from its own
// random stream. BandExecutor picks how the optimized filters are scheduled:
// a pool of Workers bands, or bild's parallel package.
//
// # Configuration
//
// Config mirrors the YAML configuration file (see package config). Validate
// rejects settings that could never produce a correct decode, such as a bit
// correction budget of half the family's Hamming distance or more.
package actag
