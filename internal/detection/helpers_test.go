package detection

import (
	"math"
	"testing"

	"github.com/ironsheep/sonartag/internal/render"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// testFamily is a two-tag 24-bit family. Neither codeword has neighbouring
// white ring cells, so the data ring never merges into large blobs.
var testFamily = sonar.TagFamily{
	Name:               "test24",
	DataBits:           24,
	MinHammingDistance: 6,
	TagSize:            0.24,
	Codewords:          []uint64{0x2a8a49, 0x90a210},
}

// testParams gives roughly 1 cm per pixel in a 200x200 image, so the
// 24 cm inner square of an 8 px per cell tag matches the family size.
var testParams = sonar.Params{MinRange: 1, MaxRange: 3, HorizontalAperture: 1.0}

// centred places a 56 px tag in the middle of a 200x200 image.
var centred = render.Placement{Row: 72, Col: 72, CellSize: 8}

// axisQuad is the fitted inner square of a tag drawn at centred.
var axisQuad = Quad{{Row: 88, Col: 88}, {Row: 88, Col: 111}, {Row: 111, Col: 111}, {Row: 111, Col: 88}}

type placedTag struct {
	id int
	pl render.Placement
}

// renderBinary draws tags on a black 200x200 image and binarizes it at
// mid grey.
func renderBinary(t *testing.T, family sonar.TagFamily, tags ...placedTag) *sonar.Binary {
	t.Helper()
	img := sonar.NewImage(200, 200)
	for _, tag := range tags {
		if err := render.Draw(img, family, tag.id, tag.pl); err != nil {
			t.Fatalf("render.Draw failed: %v", err)
		}
	}
	return binarize(img)
}

func binarize(img *sonar.Image) *sonar.Binary {
	bin := sonar.NewBinary(img.Rows, img.Cols)
	for i, v := range img.Pix {
		if v > 127 {
			bin.Pix[i] = 1
		}
	}
	return bin
}

type box struct {
	r0, r1, c0, c1 int // half-open
	v              uint8
}

// boxBinary paints boxes in order onto an all-black binary image.
func boxBinary(rows, cols int, boxes ...box) *sonar.Binary {
	bin := sonar.NewBinary(rows, cols)
	for _, b := range boxes {
		for r := b.r0; r < b.r1; r++ {
			for c := b.c0; c < b.c1; c++ {
				bin.Set(r, c, b.v)
			}
		}
	}
	return bin
}

func tagContourOptions() ContourOptions {
	return ContourOptions{
		Params:            testParams,
		TagSize:           testFamily.TagSize,
		SizeTolerance:     0.2,
		AreaTolerance:     0.2,
		MinAreaRatio:      0.1,
		RejectBlackShapes: true,
		RejectByTagSize:   true,
		RejectByArea:      true,
	}
}

func fixedQuadOptions() QuadOptions {
	return QuadOptions{
		PointsPerLineRatio:  0.1,
		DistForInlier:       2.5,
		DesiredInlierRatio:  0.85,
		RequiredInlierRatio: 0.8,
		ParallelThreshold:   0.9,
		UseSameRandomVals:   true,
		StartingRoll:        123456,
	}
}

// pixelCorners converts the continuous inner square corners of a placed tag
// into the pixel centres of its outermost white pixels.
func pixelCorners(pl render.Placement) [4][2]float64 {
	corners := render.InnerCorners(testFamily, pl)
	var cr, cc float64
	for _, p := range corners {
		cr += p[0] / 4
		cc += p[1] / 4
	}
	inset := math.Sqrt2 / 2
	var out [4][2]float64
	for i, p := range corners {
		dr, dc := cr-p[0], cc-p[1]
		d := math.Hypot(dr, dc)
		out[i] = [2]float64{p[0] - 0.5 + dr/d*inset, p[1] - 0.5 + dc/d*inset}
	}
	return out
}

func assertCornersNear(t *testing.T, got [4]sonar.Point, want [4][2]float64, tol float64) {
	t.Helper()
	for i := range got {
		d := math.Hypot(float64(got[i].Row)-want[i][0], float64(got[i].Col)-want[i][1])
		if d > tol {
			t.Errorf("corner %d = %v, want (%.2f, %.2f) within %.1f px (off by %.2f)", i, got[i], want[i][0], want[i][1], tol, d)
		}
	}
}
