package detection

import (
	"math"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// DefaultIterations is the RANSAC budget per contour.
const DefaultIterations = 500

// Quad is a quadrilateral in clockwise (row, col) order.
type Quad [4]sonar.Point

// QuadOptions configures quadrilateral fitting.
type QuadOptions struct {
	// PointsPerLineRatio is the share of contour points sampled per edge.
	PointsPerLineRatio float64

	// DistForInlier is the largest point-to-edge distance, in pixels, for
	// a point to count as an inlier.
	DistForInlier float64

	// DesiredInlierRatio ends the random search early and starts refinement.
	DesiredInlierRatio float64

	// RequiredInlierRatio is the minimum inlier share of an accepted quad.
	RequiredInlierRatio float64

	// ParallelThreshold is the minimum |cos| between opposite edges.
	ParallelThreshold float64

	// Seed makes the random search reproducible. Nil seeds from entropy.
	Seed *int64

	// UseSameRandomVals replaces random rolls with a FixedRoll counter
	// starting at StartingRoll.
	UseSameRandomVals bool
	StartingRoll      int64

	// Iterations overrides DefaultIterations when positive.
	Iterations int
}

// Source returns the random source for the contour at index. Sources are
// derived per contour so results do not depend on the order contours are
// processed in.
func (o QuadOptions) Source(index int) RandomSource {
	if o.UseSameRandomVals {
		return NewFixedRoll(o.StartingRoll)
	}
	return NewSeededSource(o.Seed, uint64(index))
}

func (o QuadOptions) iterations() int {
	if o.Iterations > 0 {
		return o.Iterations
	}
	return DefaultIterations
}

// FitQuads fits a quadrilateral to every contour in order and returns the
// accepted ones.
func FitQuads(contours []Contour, rows, cols int, opts QuadOptions) []Quad {
	var quads []Quad
	for i, ct := range contours {
		if q, ok := FitQuad(ct, rows, cols, opts, opts.Source(i)); ok {
			quads = append(quads, q)
		}
	}
	return quads
}

// FitQuad fits a quadrilateral to one contour with a RANSAC search.
//
// Each iteration samples four disjoint point runs from the contour, fits a
// line to each and intersects them into a candidate quad. Contour points are
// assigned to their nearest candidate edge; the candidate with the most
// inliers wins. Once the desired inlier ratio is reached, or the budget is
// spent, the search switches to refinement: each edge is refit to the best
// candidate's inliers for as long as the inlier count keeps rising.
//
// The result is accepted when it has the required inlier ratio and both
// pairs of opposite edges are near parallel. ok is false otherwise, which is
// the normal outcome for noise contours.
func FitQuad(ct Contour, rows, cols int, opts QuadOptions, src RandomSource) (q Quad, ok bool) {
	pts := ct.Points
	n := len(pts)
	if n == 0 {
		return Quad{}, false
	}
	perLine := max(2, int(math.RoundToEven(opts.PointsPerLineRatio*float64(n))))
	budget := opts.iterations()

	var (
		best        Quad
		bestCount   int
		bestInliers [4][]sonar.Point
		refining    bool
	)
	for iter := 0; iter <= budget; {
		var lines [4]Line
		if refining && bestCount > 0 {
			for i := range lines {
				lines[i] = FitLine(bestInliers[i])
			}
		} else {
			pool := pts
			for i := range lines {
				lines[i], pool = sampleLine(pool, perLine, src)
				src.Advance()
			}
		}

		corners, valid := quadCorners(lines, rows, cols)
		if !valid {
			iter++
			continue
		}

		count, inliers := assignInliers(pts, corners, opts.DistForInlier)
		if count > bestCount {
			best, bestCount, bestInliers = corners, count, inliers
			if refining {
				iter = budget - 1
			}
		}
		iter++
		if float64(count)/float64(n) >= opts.DesiredInlierRatio && !refining {
			refining = true
			iter = budget
		} else if iter == budget {
			refining = true
		}
	}

	if bestCount == 0 || float64(bestCount)/float64(n) < opts.RequiredInlierRatio {
		return Quad{}, false
	}
	if !isParallelogram(best, opts.ParallelThreshold) {
		return Quad{}, false
	}
	if windingSum(best) < 0 {
		best[1], best[3] = best[3], best[1]
	}
	return best, true
}

// sampleLine rolls pool by a random offset, fits a line to the first perLine
// points and returns it with the points left over. A pool too small to
// sample yields the line col = 0 and an empty pool.
func sampleLine(pool []sonar.Point, perLine int, src RandomSource) (Line, []sonar.Point) {
	m := len(pool)
	if m < perLine {
		return Line{Form: FormColumn}, nil
	}
	k := src.NextIndex(m)
	rolled := make([]sonar.Point, m)
	for i := range rolled {
		rolled[i] = pool[(i-k+m)%m]
	}
	return FitLine(rolled[:perLine]), rolled[perLine:]
}

// quadCorners orders the four lines by direction and intersects them into
// corners. ok is false for parallel pairs, corners outside the image and
// coincident corners.
func quadCorners(lines [4]Line, rows, cols int) (q Quad, ok bool) {
	var keys [4]float64
	for i, l := range lines {
		keys[i] = l.sortKey()
	}
	swap := func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
		lines[i], lines[j] = lines[j], lines[i]
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if keys[j] < keys[i] {
				swap(i, j)
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if keys[j] == keys[i] && lines[j].Intercept < lines[i].Intercept {
				swap(i, j)
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if keys[j] == keys[i] && lines[j].Intercept == lines[i].Intercept &&
				lines[j].Form == FormRow && lines[i].Form == FormColumn {
				swap(i, j)
			}
		}
	}

	// The two shallowest and two steepest lines are the opposite edge pairs.
	pairs := [4][2]int{{0, 2}, {0, 3}, {1, 3}, {1, 2}}
	for k, p := range pairs {
		r, c, hit := Intersect(lines[p[0]], lines[p[1]])
		if !hit {
			return Quad{}, false
		}
		r, c = math.RoundToEven(r), math.RoundToEven(c)
		if math.IsNaN(r) || math.IsNaN(c) || r < 0 || c < 0 || r >= float64(rows) || c >= float64(cols) {
			return Quad{}, false
		}
		q[k] = sonar.Point{Row: int(r), Col: int(c)}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if q[i] == q[j] {
				return Quad{}, false
			}
		}
	}
	return q, true
}

// assignInliers assigns each point to its nearest edge segment, the first
// one on ties, and counts those within dist. The count is zero when any edge
// ends up with fewer than two inliers.
func assignInliers(pts []sonar.Point, q Quad, dist float64) (int, [4][]sonar.Point) {
	var inliers [4][]sonar.Point
	count := 0
	for _, p := range pts {
		nearest, nearestDist := 0, math.Inf(1)
		for e := 0; e < 4; e++ {
			if d := SegmentDistance(p, q[e], q[(e+1)%4]); d < nearestDist {
				nearest, nearestDist = e, d
			}
		}
		if nearestDist <= dist {
			inliers[nearest] = append(inliers[nearest], p)
			count++
		}
	}
	for _, edge := range inliers {
		if len(edge) < 2 {
			count = 0
		}
	}
	return count, inliers
}

// isParallelogram checks that both pairs of opposite edges are parallel to
// within threshold, comparing |cos| of the angle between them.
func isParallelogram(q Quad, threshold float64) bool {
	v1 := unit(q[0], q[1])
	v2 := unit(q[3], q[2])
	v3 := unit(q[1], q[2])
	v4 := unit(q[0], q[3])
	return math.Abs(v1[0]*v2[0]+v1[1]*v2[1]) >= threshold &&
		math.Abs(v3[0]*v4[0]+v3[1]*v4[1]) >= threshold
}

// unit returns the normalized vector a - b.
func unit(a, b sonar.Point) [2]float64 {
	dr, dc := float64(a.Row-b.Row), float64(a.Col-b.Col)
	norm := math.Sqrt(dr*dr + dc*dc)
	return [2]float64{dr / norm, dc / norm}
}

// windingSum is the shoelace sum over edges of (r[i+1]-r[i])*(c[i+1]+c[i]).
// It is non-negative for clockwise corners in image coordinates.
func windingSum(q Quad) int {
	sum := 0
	for i := range q {
		next := q[(i+1)%4]
		sum += (next.Row - q[i].Row) * (next.Col + q[i].Col)
	}
	return sum
}
