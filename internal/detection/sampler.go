package detection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// Sampler selects how tag cell centres are projected into the image.
type Sampler int

const (
	// SamplerAffine fits a least-squares affine map from the four tag
	// corners to the quad. It tolerates quads that are not exact
	// parallelograms by spreading the error over all corners.
	SamplerAffine Sampler = iota

	// SamplerPerspective uses the exact projective map of the tag square
	// onto the quad.
	SamplerPerspective
)

// ParseSampler maps a configuration name to a Sampler. The empty string
// selects SamplerAffine.
func ParseSampler(name string) (Sampler, error) {
	switch name {
	case "", "affine":
		return SamplerAffine, nil
	case "perspective":
		return SamplerPerspective, nil
	default:
		return 0, fmt.Errorf("unknown sampler %q (want affine or perspective)", name)
	}
}

func (s Sampler) String() string {
	if s == SamplerPerspective {
		return "perspective"
	}
	return "affine"
}

// tagCorners returns the tag-cell coordinates (row, col) of the inner white
// square's corners in clockwise order from the top-left.
func tagCorners(dim int) [4][2]float64 {
	lo, hi := 2.0, float64(dim-2)
	return [4][2]float64{{lo, lo}, {lo, hi}, {hi, hi}, {hi, lo}}
}

// ringCells returns the centres of the outer ring cells, clockwise from the
// top-left cell, in tag-cell coordinates (row, col).
func ringCells(dataBits int) [][2]float64 {
	dim := dataBits/4 + 1
	far := float64(dim) - 0.5
	cells := make([][2]float64, 0, dataBits)
	for i := 0; i < dim-1; i++ {
		cells = append(cells, [2]float64{0.5, 0.5 + float64(i)})
	}
	for i := 0; i < dim-1; i++ {
		cells = append(cells, [2]float64{0.5 + float64(i), far})
	}
	for i := 0; i < dim-1; i++ {
		cells = append(cells, [2]float64{far, far - float64(i)})
	}
	for i := 0; i < dim-1; i++ {
		cells = append(cells, [2]float64{far - float64(i), 0.5})
	}
	return cells
}

// DataBitLocations projects the data ring cell centres of a tag whose inner
// square is q into pixel coordinates, rounding half to even.
func DataBitLocations(q Quad, dataBits int, s Sampler) []sonar.Point {
	cells := ringCells(dataBits)
	var project func(r, c float64) (float64, float64)
	if s == SamplerPerspective {
		project = perspectiveMap(q, dataBits/4+1)
	} else {
		project = affineMap(q, dataBits/4+1)
	}

	out := make([]sonar.Point, len(cells))
	for i, cell := range cells {
		r, c := project(cell[0], cell[1])
		out[i] = sonar.Point{Row: roundIndex(r), Col: roundIndex(c)}
	}
	return out
}

// affineMap solves H = S * pinv(T), where the columns of T are the tag
// corners and the columns of S the quad corners, both in homogeneous (row,
// col, 1) form. T has full row rank, so pinv(T) = T' (T T')^-1 and H' is the
// solution of (T T') H' = T S'. Entries are rounded to 8 decimal places.
func affineMap(q Quad, dim int) func(r, c float64) (float64, float64) {
	corners := tagCorners(dim)
	t := mat.NewDense(3, 4, nil)
	s := mat.NewDense(3, 4, nil)
	for i := 0; i < 4; i++ {
		t.Set(0, i, corners[i][0])
		t.Set(1, i, corners[i][1])
		t.Set(2, i, 1)
		s.Set(0, i, float64(q[i].Row))
		s.Set(1, i, float64(q[i].Col))
		s.Set(2, i, 1)
	}

	var ttT, tsT, hT mat.Dense
	ttT.Mul(t, t.T())
	tsT.Mul(t, s.T())
	if err := hT.Solve(&ttT, &tsT); err != nil {
		// Unreachable for validated families; every sample lands out of bounds.
		return func(float64, float64) (float64, float64) { return math.NaN(), math.NaN() }
	}

	var h [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] = round8(hT.At(j, i))
		}
	}
	return func(r, c float64) (float64, float64) {
		return h[0][0]*r + h[0][1]*c + h[0][2], h[1][0]*r + h[1][1]*c + h[1][2]
	}
}

// perspectiveMap maps the tag square onto q with a projective transform.
// Tag cell coordinates are normalized so the inner square's corners land on
// the unit square, then carried to the quad.
func perspectiveMap(q Quad, dim int) func(r, c float64) (float64, float64) {
	p := squareToQuad(q)
	span := float64(dim - 4)
	return func(r, c float64) (float64, float64) {
		u, v := (c-2)/span, (r-2)/span
		den := p.a13*u + p.a23*v + p.a33
		col := (p.a11*u + p.a21*v + p.a31) / den
		row := (p.a12*u + p.a22*v + p.a32) / den
		return row, col
	}
}

// projective holds a 3x3 homography in column-vector (x, y) convention,
// with x along image columns and y along rows.
type projective struct {
	a11, a12, a13 float64
	a21, a22, a23 float64
	a31, a32, a33 float64
}

// squareToQuad maps the unit square corners (0,0), (1,0), (1,1), (0,1) in
// (x, y) onto q[0] through q[3].
func squareToQuad(q Quad) projective {
	x0, y0 := float64(q[0].Col), float64(q[0].Row)
	x1, y1 := float64(q[1].Col), float64(q[1].Row)
	x2, y2 := float64(q[2].Col), float64(q[2].Row)
	x3, y3 := float64(q[3].Col), float64(q[3].Row)

	dx3 := x0 - x1 + x2 - x3
	dy3 := y0 - y1 + y2 - y3
	if dx3 == 0 && dy3 == 0 {
		return projective{
			a11: x1 - x0, a21: x2 - x1, a31: x0,
			a12: y1 - y0, a22: y2 - y1, a32: y0,
			a33: 1,
		}
	}
	dx1, dx2 := x1-x2, x3-x2
	dy1, dy2 := y1-y2, y3-y2
	den := dx1*dy2 - dx2*dy1
	a13 := (dx3*dy2 - dx2*dy3) / den
	a23 := (dx1*dy3 - dx3*dy1) / den
	return projective{
		a11: x1 - x0 + a13*x1, a21: x3 - x0 + a23*x3, a31: x0,
		a12: y1 - y0 + a13*y1, a22: y3 - y0 + a23*y3, a32: y0,
		a13: a13, a23: a23, a33: 1,
	}
}

// roundIndex rounds half to even. Non-finite values map to -1 so they fail
// bounds checks.
func roundIndex(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return int(math.RoundToEven(v))
}
