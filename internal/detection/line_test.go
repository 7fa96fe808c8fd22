package detection

import (
	"math"
	"testing"

	"github.com/ironsheep/sonartag/internal/sonar"
)

func TestFitLine(t *testing.T) {
	var horizontal, vertical, diagonal []sonar.Point
	for i := 0; i < 10; i++ {
		horizontal = append(horizontal, sonar.Point{Row: 5, Col: i})
		vertical = append(vertical, sonar.Point{Row: i, Col: 7})
	}
	for r := 0; r < 5; r++ {
		diagonal = append(diagonal, sonar.Point{Row: r, Col: 2*r + 1})
	}

	tests := []struct {
		name string
		pts  []sonar.Point
		want Line
	}{
		{"horizontal edge", horizontal, Line{Form: FormRow, Slope: 0, Intercept: 5}},
		{"vertical edge", vertical, Line{Form: FormColumn, Slope: 0, Intercept: 7}},
		{"exact in both forms prefers row", diagonal, Line{Form: FormRow, Slope: 0.5, Intercept: -0.5}},
		{"empty", nil, Line{Form: FormColumn}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitLine(tt.pts)
			if got != tt.want {
				t.Errorf("FitLine = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFitLineRoundsParameters(t *testing.T) {
	pts := []sonar.Point{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 1}}
	l := FitLine(pts)
	for _, v := range []float64{l.Slope, l.Intercept} {
		if v != math.Round(v*1e8)/1e8 {
			t.Errorf("parameter %v is not rounded to 8 decimals", v)
		}
	}
}

func TestLeastSquaresMinimumNorm(t *testing.T) {
	// x has no spread: the minimum-norm solution of [3 1][m b]' = 4.
	m, b := leastSquares([]float64{3, 3}, []float64{4, 4})
	if m != 1.2 || b != 0.4 {
		t.Errorf("leastSquares = (%v, %v), want (1.2, 0.4)", m, b)
	}
}

func TestSortKey(t *testing.T) {
	tests := []struct {
		line Line
		want float64
	}{
		{Line{Form: FormColumn, Slope: 0.3}, 0.3},
		{Line{Form: FormRow, Slope: 0}, 1e6},
		{Line{Form: FormRow, Slope: 1e-7}, 1e6},
		{Line{Form: FormRow, Slope: 2}, 0.5},
	}
	for _, tt := range tests {
		if got := tt.line.sortKey(); got != tt.want {
			t.Errorf("%+v.sortKey() = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Line
		row, col float64
		ok       bool
	}{
		{
			name: "column meets row",
			a:    Line{Form: FormColumn, Intercept: 5},
			b:    Line{Form: FormRow, Intercept: 3},
			row:  3, col: 5, ok: true,
		},
		{
			name: "row meets column",
			a:    Line{Form: FormRow, Intercept: 3},
			b:    Line{Form: FormColumn, Intercept: 5},
			row:  3, col: 5, ok: true,
		},
		{
			name: "two column lines",
			a:    Line{Form: FormColumn, Slope: 1},
			b:    Line{Form: FormColumn, Slope: -1, Intercept: 10},
			row:  5, col: 5, ok: true,
		},
		{
			name: "parallel rows",
			a:    Line{Form: FormRow, Slope: 0.5, Intercept: 1},
			b:    Line{Form: FormRow, Slope: 0.5, Intercept: 4},
		},
		{
			name: "equal slopes across forms",
			a:    Line{Form: FormColumn, Slope: 0.5},
			b:    Line{Form: FormRow, Slope: 0.5, Intercept: 3},
			row:  4, col: 2, ok: true,
		},
		{
			name: "parallel across forms",
			a:    Line{Form: FormColumn, Slope: 2},
			b:    Line{Form: FormRow, Slope: 0.5, Intercept: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, col, ok := Intersect(tt.a, tt.b)
			if ok != tt.ok {
				t.Fatalf("Intersect ok = %v, want %v", ok, tt.ok)
			}
			if ok && (row != tt.row || col != tt.col) {
				t.Errorf("Intersect = (%v, %v), want (%v, %v)", row, col, tt.row, tt.col)
			}
		})
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := sonar.Point{Row: 0, Col: 0}, sonar.Point{Row: 0, Col: 10}
	tests := []struct {
		p    sonar.Point
		want float64
	}{
		{sonar.Point{Row: 3, Col: 5}, 3},
		{sonar.Point{Row: 0, Col: 14}, 4},
		{sonar.Point{Row: -3, Col: -4}, 5},
		{sonar.Point{Row: 4, Col: 13}, 5},
		{sonar.Point{Row: 0, Col: 7}, 0},
	}
	for _, tt := range tests {
		if got := SegmentDistance(tt.p, a, b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("SegmentDistance(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
