package actag

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/filter"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// Detector finds AcTags in sonar images. It is safe for concurrent use.
type Detector struct {
	cfg     Config
	sampler detection.Sampler
	logger  *slog.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger routes the detector's logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New validates cfg and returns a detector for it. Configuration problems
// are reported as ErrInvalidConfig.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampler, _ := detection.ParseSampler(cfg.DecodingSampler)
	d := &Detector{cfg: cfg, sampler: sampler, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Stages holds every intermediate product of one detection run.
type Stages struct {
	Filtered *sonar.Image
	Binary   *sonar.Binary
	Contours []detection.Contour
	Quads    []detection.Quad
	Tags     []detection.DetectedTag
}

// Detect runs the execution path selected by UseOptimized. An image with no
// tags yields an empty slice and no error.
func (d *Detector) Detect(img *sonar.Image) ([]detection.DetectedTag, error) {
	if d.cfg.UseOptimized {
		return d.DetectOptimized(img)
	}
	return d.DetectReference(img)
}

// DetectReference runs every stage sequentially with the direct filters.
func (d *Detector) DetectReference(img *sonar.Image) ([]detection.DetectedTag, error) {
	st, err := d.run(img, false)
	if err != nil {
		return nil, err
	}
	return st.Tags, nil
}

// DetectOptimized runs the filters on row bands and fits and decodes
// contours concurrently. Its results are identical to DetectReference.
func (d *Detector) DetectOptimized(img *sonar.Image) ([]detection.DetectedTag, error) {
	st, err := d.run(img, true)
	if err != nil {
		return nil, err
	}
	return st.Tags, nil
}

// Stages runs the selected path and returns all intermediate products.
func (d *Detector) Stages(img *sonar.Image) (*Stages, error) {
	return d.run(img, d.cfg.UseOptimized)
}

func (d *Detector) run(img *sonar.Image, optimized bool) (*Stages, error) {
	cfg := d.cfg
	st := &Stages{}

	var err error
	if optimized {
		exec := d.bandExecutor()
		if st.Filtered, err = filter.MedianHistogram(img, cfg.MedianFilterKernelRadius, exec); err != nil {
			return nil, err
		}
		st.Binary, err = filter.AdaptiveThresholdIntegral(st.Filtered, cfg.AdaptiveThresholdKernelRadius, cfg.AdaptiveThresholdOffset, exec)
	} else {
		if st.Filtered, err = filter.Median(img, cfg.MedianFilterKernelRadius, filter.Serial{}); err != nil {
			return nil, err
		}
		st.Binary, err = filter.AdaptiveThreshold(st.Filtered, cfg.AdaptiveThresholdKernelRadius, cfg.AdaptiveThresholdOffset, filter.Serial{})
	}
	if err != nil {
		return nil, err
	}

	if st.Contours, err = detection.ExtractContours(st.Binary, cfg.contourOptions()); err != nil {
		return nil, err
	}

	quadOpts := cfg.quadOptions()
	decodeOpts := cfg.decodeOptions(d.sampler)
	rows, cols := st.Binary.Rows, st.Binary.Cols
	if optimized {
		st.Quads, st.Tags = d.fitAndDecodeConcurrent(st.Binary, st.Contours, quadOpts, decodeOpts)
	} else {
		st.Quads = detection.FitQuads(st.Contours, rows, cols, quadOpts)
		st.Tags = detection.DecodeTags(st.Binary, st.Quads, cfg.Sonar, cfg.Family, decodeOpts)
	}

	d.logger.Debug("detection finished",
		"optimized", optimized,
		"contours", len(st.Contours),
		"quads", len(st.Quads),
		"tags", len(st.Tags))
	return st, nil
}

func (d *Detector) bandExecutor() filter.BandExecutor {
	if d.cfg.BandExecutor == ExecutorBild {
		return filter.Bild{}
	}
	return filter.NewPool(d.cfg.Workers, d.logger)
}

// contourResult is the outcome for one contour on the concurrent path.
type contourResult struct {
	quad    detection.Quad
	hasQuad bool
	tag     detection.DetectedTag
	hasTag  bool
}

// fitAndDecodeConcurrent fits and decodes every contour on a bounded pool.
// Results are gathered by contour index, so quads and tags come out in the
// same order as the sequential path.
func (d *Detector) fitAndDecodeConcurrent(bin *sonar.Binary, contours []detection.Contour, qo detection.QuadOptions, do detection.DecodeOptions) ([]detection.Quad, []detection.DetectedTag) {
	results := make([]contourResult, len(contours))

	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range contours {
		i := i
		g.Go(func() error {
			q, ok := detection.FitQuad(contours[i], bin.Rows, bin.Cols, qo, qo.Source(i))
			if !ok {
				return nil
			}
			res := contourResult{quad: q, hasQuad: true}
			res.tag, res.hasTag = detection.DecodeTag(bin, q, d.cfg.Sonar, d.cfg.Family, do)
			results[i] = res
			return nil
		})
	}
	// Fitting and decoding never fail; the group only bounds and joins them.
	g.Wait()

	var quads []detection.Quad
	var tags []detection.DetectedTag
	for _, res := range results {
		if res.hasQuad {
			quads = append(quads, res.quad)
		}
		if res.hasTag {
			tags = append(tags, res.tag)
		}
	}
	return quads, tags
}
