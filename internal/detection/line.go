package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// LineForm selects which coordinate a Line solves for.
type LineForm int

const (
	// FormColumn is col = Slope*row + Intercept.
	FormColumn LineForm = iota
	// FormRow is row = Slope*col + Intercept.
	FormRow
)

func (f LineForm) String() string {
	if f == FormRow {
		return "row"
	}
	return "column"
}

// Line is a 2D line in one of two explicit forms. Keeping both forms avoids
// unbounded slopes for edges that run along rows or columns.
type Line struct {
	Form      LineForm
	Slope     float64
	Intercept float64
}

// FitLine fits pts by least squares in both forms and returns the form with
// the strictly lower sum of squared residuals, preferring FormRow on ties.
// Residual sums, slope and intercept are rounded to 8 decimal places so the
// result is reproducible across execution paths.
func FitLine(pts []sonar.Point) Line {
	if len(pts) == 0 {
		return Line{Form: FormColumn}
	}
	rows := make([]float64, len(pts))
	cols := make([]float64, len(pts))
	for i, p := range pts {
		rows[i] = float64(p.Row)
		cols[i] = float64(p.Col)
	}

	colSlope, colIntercept := leastSquares(rows, cols)
	rowSlope, rowIntercept := leastSquares(cols, rows)

	var errCol, errRow float64
	for i := range pts {
		dc := cols[i] - (colSlope*rows[i] + colIntercept)
		dr := rows[i] - (rowSlope*cols[i] + rowIntercept)
		errCol += dc * dc
		errRow += dr * dr
	}

	if round8(errCol) < round8(errRow) {
		return Line{Form: FormColumn, Slope: round8(colSlope), Intercept: round8(colIntercept)}
	}
	return Line{Form: FormRow, Slope: round8(rowSlope), Intercept: round8(rowIntercept)}
}

// leastSquares solves y = m*x + b. When x has no spread the system is rank
// deficient and the minimum-norm solution is returned, matching an SVD
// based solver.
func leastSquares(x, y []float64) (slope, intercept float64) {
	constant := true
	for _, v := range x[1:] {
		if v != x[0] {
			constant = false
			break
		}
	}
	if constant {
		yMean := stat.Mean(y, nil)
		denom := x[0]*x[0] + 1
		return x[0] * yMean / denom, yMean / denom
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	return slope, intercept
}

// sortKey orders lines by direction on a common scale: column-form slopes
// are used as is and row-form slopes are inverted, with near-zero row
// slopes (vertical in column terms) mapped to 1e6.
func (l Line) sortKey() float64 {
	if l.Form == FormColumn {
		return l.Slope
	}
	if math.Abs(l.Slope) < 1e-6 {
		return 1e6
	}
	return 1 / l.Slope
}

// Intersect returns the intersection of two lines in (row, col). ok is false
// when the lines are parallel, that is when their slopes are equal on a
// common scale.
func Intersect(a, b Line) (row, col float64, ok bool) {
	m1, b1 := a.Slope, a.Intercept
	m2, b2 := b.Slope, b.Intercept
	switch {
	case a.Form == b.Form:
		if m1 == m2 {
			return 0, 0, false
		}
		if a.Form == FormColumn {
			row = (b2 - b1) / (m1 - m2)
			col = m1*row + b1
		} else {
			col = (b2 - b1) / (m1 - m2)
			row = m1*col + b1
		}
	case 1-m1*m2 == 0:
		return 0, 0, false
	case a.Form == FormColumn:
		col = (m1*b2 + b1) / (1 - m1*m2)
		row = m2*col + b2
	default:
		row = (m1*b2 + b1) / (1 - m1*m2)
		col = m2*row + b2
	}
	return row, col, true
}

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b sonar.Point) float64 {
	abR, abC := float64(b.Row-a.Row), float64(b.Col-a.Col)
	apR, apC := float64(p.Row-a.Row), float64(p.Col-a.Col)
	bpR, bpC := float64(p.Row-b.Row), float64(p.Col-b.Col)

	switch {
	case abR*bpR+abC*bpC > 0:
		return math.Sqrt(bpR*bpR + bpC*bpC)
	case abR*apR+abC*apC < 0:
		return math.Sqrt(apR*apR + apC*apC)
	default:
		return math.Abs(abR*apC-abC*apR) / math.Sqrt(abR*abR+abC*abC)
	}
}

func round8(x float64) float64 {
	return math.Round(x*1e8) / 1e8
}
