package detection

import (
	"math"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// Contour is a closed boundary traced in a binary image.
type Contour struct {
	// Layer is the 1-based nesting depth. Odd layers are white shapes on a
	// black surround, even layers are black holes inside white shapes.
	Layer int `json:"layer"`

	// Points is the boundary in clockwise trace order, starting at the
	// first pixel found in raster order.
	Points []sonar.Point `json:"points"`

	// Area counts the boundary pixels plus the pixels they enclose.
	Area int `json:"area"`

	// Min and Max bound the boundary pixels (inclusive).
	Min sonar.Point `json:"min"`
	Max sonar.Point `json:"max"`
}

// White reports whether the contour encloses a white shape.
func (c Contour) White() bool {
	return c.Layer%2 == 1
}

// ContourOptions controls which traced contours are kept.
type ContourOptions struct {
	Params  sonar.Params
	TagSize float64 // meters, inner white square side

	SizeTolerance float64
	AreaTolerance float64
	MinAreaRatio  float64

	RejectBlackShapes bool
	RejectWhiteShapes bool
	RejectByTagSize   bool
	RejectByArea      bool
}

// 8-connected neighbour offsets indexed by direction, counterclockwise from
// "right". The trace scans them in decreasing direction order (clockwise).
var neighbours = [8]sonar.Point{
	{Row: 0, Col: 1},   // 0
	{Row: -1, Col: 1},  // 1
	{Row: -1, Col: 0},  // 2
	{Row: -1, Col: -1}, // 3
	{Row: 0, Col: -1},  // 4
	{Row: 1, Col: -1},  // 5
	{Row: 1, Col: 0},   // 6
	{Row: 1, Col: 1},   // 7
}

// ExtractContours traces every border in bin, layer by layer through the
// nesting hierarchy, and returns the contours that pass the enabled
// rejection rules in discovery order.
//
// # Algorithm
//
//  1. Layer 1 holds the white shapes whose parent is the image frame.
//     Each unclaimed white pixel, in raster order, seeds a clockwise Moore
//     trace. The trace and everything it encloses are claimed.
//  2. Unclaimed pixels are cleared and the layer is inverted, so the holes
//     of the claimed shapes become the white shapes of the next layer.
//  3. Layers of a rejected polarity are not traced at all: the outer frame
//     is merged into them and the image inverted.
//  4. Extraction stops once the working image is empty.
//
// Rejected contours still claim their pixels, so their holes are searched
// in the next layer.
func ExtractContours(bin *sonar.Binary, opts ContourOptions) ([]Contour, error) {
	if err := bin.Validate(); err != nil {
		return nil, err
	}
	rows, cols := bin.Rows, bin.Cols

	work := make([]int8, len(bin.Pix))
	for i, v := range bin.Pix {
		work[i] = int8(v)
	}
	searchable := make([]int8, len(work))
	filter := newContourFilter(opts, rows, cols)

	// With both polarities rejected no layer is ever traced.
	if opts.RejectBlackShapes && opts.RejectWhiteShapes {
		return nil, nil
	}

	var contours []Contour
	for layer := 1; layer <= rows*cols+1 && !allZero(work); layer++ {
		if (layer%2 == 0 && opts.RejectBlackShapes) || (layer%2 == 1 && opts.RejectWhiteShapes) {
			mergeAndInvert(work, rows, cols)
			continue
		}

		clear(searchable)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				i := r*cols + c
				if work[i] == 1 && searchable[i] == 0 {
					ct := traceContour(work, searchable, rows, cols, r, c)
					ct.Layer = layer
					if filter.accept(ct) {
						contours = append(contours, ct)
					}
				} else if searchable[i] == 0 {
					work[i] = -1
				}
			}
		}
		for i, v := range work {
			if v == 1 {
				work[i] = -1
			}
			work[i]++
		}
	}
	return contours, nil
}

// traceContour follows the border starting at the seed and claims it, along
// with any enclosed pixels, in searchable.
func traceContour(work, searchable []int8, rows, cols, seedR, seedC int) Contour {
	chain := []sonar.Point{{Row: seedR, Col: seedC}}
	r, c := seedR, seedC
	last := 4
	maxSteps := 4*rows*cols + 8

trace:
	for step := 0; step < maxSteps; step++ {
		for i := 0; i < 8; i++ {
			d := (last - 1 - i + 16) % 8
			if r == seedR && c == seedC && d == 4 {
				break trace
			}
			nr, nc := r+neighbours[d].Row, c+neighbours[d].Col
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			if work[nr*cols+nc] == 1 {
				r, c = nr, nc
				chain = append(chain, sonar.Point{Row: r, Col: c})
				searchable[r*cols+c] = 1
				last = (d + 4) % 8
				break
			}
		}
	}
	// A closed trace ends back on the seed.
	if len(chain) > 1 {
		chain = chain[:len(chain)-1]
	}

	ct := Contour{Points: chain, Area: len(chain), Min: chain[0], Max: chain[0]}
	for _, p := range chain[1:] {
		ct.Min.Row = min(ct.Min.Row, p.Row)
		ct.Min.Col = min(ct.Min.Col, p.Col)
		ct.Max.Row = max(ct.Max.Row, p.Row)
		ct.Max.Col = max(ct.Max.Col, p.Col)
	}
	if len(chain) > 3 {
		ct.Area += claimInterior(searchable, cols, ct.Min, ct.Max)
	}
	return ct
}

// claimInterior marks every unclaimed pixel of the box that cannot be
// reached from outside the box, and returns how many it marked.
func claimInterior(searchable []int8, cols int, lo, hi sonar.Point) int {
	h, w := hi.Row-lo.Row+3, hi.Col-lo.Col+3
	box := make([]int8, h*w)
	for r := lo.Row; r <= hi.Row; r++ {
		copy(box[(r-lo.Row+1)*w+1:], searchable[r*cols+lo.Col:r*cols+hi.Col+1])
	}
	floodFill(box, h, w, 0, 0, 1)

	n := 0
	for r := 1; r < h-1; r++ {
		for c := 1; c < w-1; c++ {
			if box[r*w+c] == 0 {
				searchable[(r-1+lo.Row)*cols+c-1+lo.Col] = 1
				n++
			}
		}
	}
	return n
}

// mergeAndInvert merges the region connected to the top-left pixel into the
// frame and swaps the colours of the rest.
func mergeAndInvert(work []int8, rows, cols int) {
	floodFill(work, rows, cols, 0, 0, -1)
	for i, v := range work {
		if v == 1 {
			work[i] = -1
		}
		work[i]++
	}
}

// floodFill sets the 4-connected region sharing the seed's value to fill.
func floodFill(grid []int8, rows, cols, seedR, seedC int, fill int8) {
	target := grid[seedR*cols+seedC]
	if target == fill {
		return
	}
	grid[seedR*cols+seedC] = fill
	stack := []sonar.Point{{Row: seedR, Col: seedC}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range [4]sonar.Point{{Row: 0, Col: 1}, {Row: -1, Col: 0}, {Row: 0, Col: -1}, {Row: 1, Col: 0}} {
			nr, nc := p.Row+d.Row, p.Col+d.Col
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			if grid[nr*cols+nc] == target {
				grid[nr*cols+nc] = fill
				stack = append(stack, sonar.Point{Row: nr, Col: nc})
			}
		}
	}
}

func allZero(work []int8) bool {
	for _, v := range work {
		if v != 0 {
			return false
		}
	}
	return true
}

// contourFilter applies the size and area rejection rules.
type contourFilter struct {
	opts        ContourOptions
	rows, cols  int
	rangePixels float64
}

func newContourFilter(opts ContourOptions, rows, cols int) contourFilter {
	f := contourFilter{opts: opts, rows: rows, cols: cols}
	if opts.RejectByTagSize || opts.RejectByArea {
		f.rangePixels = diagonal(opts.TagSize) / opts.Params.RangeResolution(rows)
	}
	return f
}

// expectedExtent returns the largest row and column extent, in pixels, a
// tag can span when centred on row.
func (f contourFilter) expectedExtent(row int) (rangePx, azimuthPx float64) {
	return f.rangePixels, diagonal(f.opts.TagSize) / f.opts.Params.AzimuthResolution(row, f.rows, f.cols)
}

func (f contourFilter) accept(ct Contour) bool {
	if !f.opts.RejectByTagSize && !f.opts.RejectByArea {
		return true
	}
	centre := ct.Min.Row + (ct.Max.Row-ct.Min.Row)/2
	rangePx, azimuthPx := f.expectedExtent(centre)

	if f.opts.RejectByTagSize {
		limit := 1 + f.opts.SizeTolerance
		if float64(ct.Max.Row-ct.Min.Row) > rangePx*limit {
			return false
		}
		if float64(ct.Max.Col-ct.Min.Col) > azimuthPx*limit {
			return false
		}
	}
	if f.opts.RejectByArea {
		maxArea := rangePx * azimuthPx
		area := float64(ct.Area)
		if area > maxArea*(1+f.opts.AreaTolerance) || area < maxArea*f.opts.MinAreaRatio {
			return false
		}
	}
	return true
}

func diagonal(side float64) float64 {
	return math.Sqrt(2 * side * side)
}
