package imaging

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// measureParams spaces 201 rows 1 cm apart from 3 m down to 1 m, and 101
// columns 10 mrad apart.
var measureParams = sonar.Params{MinRange: 1, MaxRange: 3, HorizontalAperture: 1.0}

func TestMeasureDistance(t *testing.T) {
	tests := []struct {
		name         string
		a, b         sonar.Point
		wantPixels   float64
		wantMeters   float64
		wantRange    float64
		wantAzimuthD float64
	}{
		{"same point", sonar.Point{Row: 10, Col: 10}, sonar.Point{Row: 10, Col: 10}, 0, 0, 0, 0},
		{"along boresight", sonar.Point{Row: 0, Col: 50}, sonar.Point{Row: 100, Col: 50}, 100, 1, -1, 0},
		{"along an arc", sonar.Point{Row: 100, Col: 0}, sonar.Point{Row: 100, Col: 100}, 100, 2 * 2 * math.Sin(0.5), 0, -57.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MeasureDistance(measureParams, 201, 101, tt.a, tt.b)
			if err != nil {
				t.Fatalf("MeasureDistance failed: %v", err)
			}
			if result.DistancePixels != tt.wantPixels {
				t.Errorf("DistancePixels: got %g, want %g", result.DistancePixels, tt.wantPixels)
			}
			if math.Abs(result.DistanceMeters-tt.wantMeters) > 1e-4 {
				t.Errorf("DistanceMeters: got %g, want %g", result.DistanceMeters, tt.wantMeters)
			}
			if math.Abs(result.RangeDeltaMeters-tt.wantRange) > 1e-4 {
				t.Errorf("RangeDeltaMeters: got %g, want %g", result.RangeDeltaMeters, tt.wantRange)
			}
			if math.Abs(result.AzimuthDeltaDegrees-tt.wantAzimuthD) > 0.01 {
				t.Errorf("AzimuthDeltaDegrees: got %g, want %g", result.AzimuthDeltaDegrees, tt.wantAzimuthD)
			}
		})
	}
}

func TestMeasureDistance_Positions(t *testing.T) {
	result, err := MeasureDistance(measureParams, 201, 101, sonar.Point{Row: 0, Col: 50}, sonar.Point{Row: 200, Col: 0})
	if err != nil {
		t.Fatalf("MeasureDistance failed: %v", err)
	}
	if math.Abs(result.From.X-3) > 1e-9 || math.Abs(result.From.Y) > 1e-9 {
		t.Errorf("From: got (%g, %g), want (3, 0)", result.From.X, result.From.Y)
	}
	if result.To.Polar.Range != 1 || math.Abs(result.To.Polar.Azimuth-0.5) > 1e-9 {
		t.Errorf("To polar: got %+v, want range 1 azimuth 0.5", result.To.Polar)
	}
	if result.To.Y <= 0 {
		t.Errorf("column 0 should sit at positive y, got %g", result.To.Y)
	}
}

func TestMeasureDistance_Errors(t *testing.T) {
	tests := []struct {
		name       string
		params     sonar.Params
		rows, cols int
		a, b       sonar.Point
		is         error
	}{
		{"bad params", sonar.Params{MinRange: 2, MaxRange: 1, HorizontalAperture: 1}, 10, 10, sonar.Point{}, sonar.Point{}, sonar.ErrInvalidParams},
		{"tiny image", measureParams, 1, 10, sonar.Point{}, sonar.Point{}, sonar.ErrInvalidImage},
		{"point outside", measureParams, 10, 10, sonar.Point{Row: 10, Col: 0}, sonar.Point{}, nil},
		{"negative column", measureParams, 10, 10, sonar.Point{}, sonar.Point{Row: 0, Col: -1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MeasureDistance(tt.params, tt.rows, tt.cols, tt.a, tt.b)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error: got %v, want %v", err, tt.is)
			}
		})
	}
}

func TestMeasureTag(t *testing.T) {
	family := sonar.TagFamily{Name: "test24", DataBits: 24, MinHammingDistance: 6, TagSize: 0.24, Codewords: []uint64{1}}
	params := sonar.Params{MinRange: 1, MaxRange: 3, HorizontalAperture: 1.0}

	m, err := MeasureTag(params, 200, 200, squareTag(4), family)
	if err != nil {
		t.Fatalf("MeasureTag failed: %v", err)
	}
	if m.ID != 4 || m.Expected != 0.24 {
		t.Errorf("ID/Expected: got %d/%g", m.ID, m.Expected)
	}
	for i, s := range m.SideMeters {
		if s <= 0.2 || s >= 0.26 {
			t.Errorf("side %d: got %g m, want about 0.23", i, s)
		}
	}
	if m.SizeRatio < 0.9 || m.SizeRatio > 1.05 {
		t.Errorf("SizeRatio: got %g, want near 1", m.SizeRatio)
	}
	// Centre row 99 of 200 between 3 m and 1 m.
	if want := 3 - 99*2.0/199; math.Abs(m.RangeMeters-want) > 1e-4 {
		t.Errorf("RangeMeters: got %g, want %g", m.RangeMeters, want)
	}

	family.TagSize = 0
	if _, err := MeasureTag(params, 200, 200, squareTag(4), family); !errors.Is(err, sonar.ErrInvalidFamily) {
		t.Errorf("zero tag size error: got %v", err)
	}
}
