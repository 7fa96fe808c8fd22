package sonar

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned for sonar geometry that cannot describe an image.
var ErrInvalidParams = errors.New("invalid sonar parameters")

// Params describes the sonar settings an image was captured with.
type Params struct {
	// MinRange is the range in meters of the last image row.
	MinRange float64 `json:"min_range" yaml:"min_range"`

	// MaxRange is the range in meters of the first image row.
	MaxRange float64 `json:"max_range" yaml:"max_range"`

	// HorizontalAperture is the azimuth field of view in radians. Column 0
	// sits at +aperture/2 and the last column at -aperture/2.
	HorizontalAperture float64 `json:"horizontal_aperture" yaml:"horizontal_aperture"`
}

// Validate checks the geometry is usable.
func (p Params) Validate() error {
	if p.MinRange < 0 || p.MaxRange <= p.MinRange {
		return fmt.Errorf("%w: range [%g, %g]", ErrInvalidParams, p.MinRange, p.MaxRange)
	}
	if p.HorizontalAperture <= 0 || p.HorizontalAperture >= 2*math.Pi {
		return fmt.Errorf("%w: horizontal aperture %g rad", ErrInvalidParams, p.HorizontalAperture)
	}
	return nil
}

// Polar is a physical sonar coordinate.
type Polar struct {
	Range   float64 `json:"range"`   // meters
	Azimuth float64 `json:"azimuth"` // radians, positive toward column 0
}

// PixelToPolar maps a pixel of a rows x cols image to range and azimuth.
// Rows are spaced linearly from MaxRange to MinRange and columns linearly
// from +aperture/2 to -aperture/2.
func (p Params) PixelToPolar(pt Point, rows, cols int) Polar {
	rangeStep := (p.MaxRange - p.MinRange) / (float64(rows) - 1)
	aziStep := p.HorizontalAperture / (float64(cols) - 1)
	return Polar{
		Range:   p.MaxRange - float64(pt.Row)*rangeStep,
		Azimuth: p.HorizontalAperture/2 - float64(pt.Col)*aziStep,
	}
}

// RowRange returns the range in meters of a row center, matching the
// linspace(MaxRange, MinRange, rows) convention used for size rejection.
func (p Params) RowRange(row, rows int) float64 {
	if rows <= 1 {
		return p.MaxRange
	}
	return p.MaxRange + float64(row)*(p.MinRange-p.MaxRange)/float64(rows-1)
}

// RangeResolution returns the meters covered by one row.
func (p Params) RangeResolution(rows int) float64 {
	return (p.MaxRange - p.MinRange) / float64(rows)
}

// AzimuthResolution returns the arc length in meters covered by one column
// at the given row.
func (p Params) AzimuthResolution(row, rows, cols int) float64 {
	return p.RowRange(row, rows) * p.HorizontalAperture / float64(cols)
}

// Cartesian converts a polar coordinate to sonar-frame meters, with x along
// boresight and y toward positive azimuth.
func (pol Polar) Cartesian() (x, y float64) {
	return pol.Range * math.Cos(pol.Azimuth), pol.Range * math.Sin(pol.Azimuth)
}
