package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// Position is a pixel with its physical coordinates.
type Position struct {
	Pixel sonar.Point `json:"pixel"`
	Polar sonar.Polar `json:"polar"`

	// X and Y are sonar-frame meters: X along boresight, Y toward positive
	// azimuth.
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceResult contains measurement information
type DistanceResult struct {
	From                Position `json:"from"`
	To                  Position `json:"to"`
	DistancePixels      float64  `json:"distance_pixels"`
	DistanceMeters      float64  `json:"distance_meters"`
	RangeDeltaMeters    float64  `json:"range_delta_meters"`
	AzimuthDeltaDegrees float64  `json:"azimuth_delta_degrees"`
}

func position(params sonar.Params, p sonar.Point, rows, cols int) Position {
	pol := params.PixelToPolar(p, rows, cols)
	x, y := pol.Cartesian()
	return Position{Pixel: p, Polar: pol, X: x, Y: y}
}

func checkPoint(p sonar.Point, rows, cols int) error {
	if p.Row < 0 || p.Col < 0 || p.Row >= rows || p.Col >= cols {
		return fmt.Errorf("point (%d,%d) outside image %dx%d", p.Row, p.Col, rows, cols)
	}
	return nil
}

// MeasureDistance converts two pixels of a rows x cols sonar image to
// physical positions and reports the distances between them.
func MeasureDistance(params sonar.Params, rows, cols int, a, b sonar.Point) (*DistanceResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("%w: shape %dx%d is too small to measure", sonar.ErrInvalidImage, rows, cols)
	}
	if err := checkPoint(a, rows, cols); err != nil {
		return nil, err
	}
	if err := checkPoint(b, rows, cols); err != nil {
		return nil, err
	}

	from := position(params, a, rows, cols)
	to := position(params, b, rows, cols)
	dr, dc := float64(b.Row-a.Row), float64(b.Col-a.Col)

	return &DistanceResult{
		From:                from,
		To:                  to,
		DistancePixels:      roundTo(math.Hypot(dr, dc), 100),
		DistanceMeters:      roundTo(math.Hypot(to.X-from.X, to.Y-from.Y), 1e4),
		RangeDeltaMeters:    roundTo(to.Polar.Range-from.Polar.Range, 1e4),
		AzimuthDeltaDegrees: roundTo((to.Polar.Azimuth-from.Polar.Azimuth)*180/math.Pi, 100),
	}, nil
}

// TagMeasurement compares a detected tag's physical size with its family's.
type TagMeasurement struct {
	ID          int        `json:"id"`
	Center      Position   `json:"center"`
	SideMeters  [4]float64 `json:"side_meters"`
	MeanSide    float64    `json:"mean_side_meters"`
	Expected    float64    `json:"expected_side_meters"`
	SizeRatio   float64    `json:"size_ratio"`
	RangeMeters float64    `json:"range_meters"`
}

// MeasureTag converts a tag's corners to sonar-frame meters and reports its
// side lengths against the family's inner square size. A size ratio far
// from 1 usually means the sonar parameters do not match the image.
func MeasureTag(params sonar.Params, rows, cols int, tag detection.DetectedTag, family sonar.TagFamily) (*TagMeasurement, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if family.TagSize <= 0 {
		return nil, fmt.Errorf("%w: tag size %g", sonar.ErrInvalidFamily, family.TagSize)
	}

	var corners [4]Position
	var sumRow, sumCol int
	for i, p := range tag.CornersPx {
		corners[i] = position(params, p, rows, cols)
		sumRow += p.Row
		sumCol += p.Col
	}
	var sides [4]float64
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		sides[i] = roundTo(math.Hypot(b.X-a.X, b.Y-a.Y), 1e4)
	}
	mean := stat.Mean(sides[:], nil)
	center := position(params, sonar.Point{Row: sumRow / 4, Col: sumCol / 4}, rows, cols)

	return &TagMeasurement{
		ID:          tag.ID,
		Center:      center,
		SideMeters:  sides,
		MeanSide:    roundTo(mean, 1e4),
		Expected:    family.TagSize,
		SizeRatio:   roundTo(mean/family.TagSize, 1000),
		RangeMeters: roundTo(center.Polar.Range, 1e4),
	}, nil
}
