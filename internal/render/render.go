package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// Intensities used for rendered cells.
const (
	White uint8 = 255
	Black uint8 = 0
)

// ErrUnknownTag is returned when a tag id is not in the family.
var ErrUnknownTag = errors.New("unknown tag id")

// Placement positions a tag in an image.
type Placement struct {
	// Row and Col are the top-left corner of the tag's outer edge before
	// rotation, in pixels.
	Row, Col float64

	// CellSize is the side of one tag cell in pixels.
	CellSize float64

	// Rotation turns the tag clockwise about its centre, in radians.
	Rotation float64

	// Mirrored flips the tag left to right before rotating it.
	Mirrored bool
}

// Cells returns the tag's cell grid, true for white, indexed [row][col].
func Cells(family sonar.TagFamily, id int) ([][]bool, error) {
	if err := family.Validate(); err != nil {
		return nil, err
	}
	if id < 0 || id >= len(family.Codewords) {
		return nil, fmt.Errorf("%w: %d (family %q has %d tags)", ErrUnknownTag, id, family.Name, len(family.Codewords))
	}

	dim := family.GridSize()
	grid := make([][]bool, dim)
	for r := range grid {
		grid[r] = make([]bool, dim)
	}
	for r := 2; r < dim-2; r++ {
		for c := 2; c < dim-2; c++ {
			grid[r][c] = true
		}
	}

	n := family.DataBits
	code := family.Codewords[id]
	for i := 0; i < n; i++ {
		r, c := ringCell(i, dim)
		grid[r][c] = code&(1<<(n-1-i)) != 0
	}
	return grid, nil
}

// ringCell returns the cell of ring bit i, clockwise from the top-left.
func ringCell(i, dim int) (row, col int) {
	side, off := i/(dim-1), i%(dim-1)
	switch side {
	case 0:
		return 0, off
	case 1:
		return off, dim - 1
	case 2:
		return dim - 1, dim - 1 - off
	default:
		return dim - 1 - off, 0
	}
}

// Draw paints the tag into img. A pixel belongs to the cell containing its
// centre; pixels outside the tag are left untouched.
func Draw(img *sonar.Image, family sonar.TagFamily, id int, pl Placement) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if pl.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %g", pl.CellSize)
	}
	grid, err := Cells(family, id)
	if err != nil {
		return err
	}

	dim := len(grid)
	side := float64(dim) * pl.CellSize
	cr, cc := pl.Row+side/2, pl.Col+side/2
	reach := side * math.Sqrt2 / 2
	sin, cos := math.Sincos(pl.Rotation)

	r0 := max(0, int(math.Floor(cr-reach)))
	r1 := min(img.Rows-1, int(math.Ceil(cr+reach)))
	c0 := max(0, int(math.Floor(cc-reach)))
	c1 := min(img.Cols-1, int(math.Ceil(cc+reach)))
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			dr, dc := float64(r)+0.5-cr, float64(c)+0.5-cc
			tr := dr*cos - dc*sin + side/2
			tc := dc*cos + dr*sin + side/2
			if tr < 0 || tc < 0 || tr >= side || tc >= side {
				continue
			}
			row, col := int(tr/pl.CellSize), int(tc/pl.CellSize)
			if row >= dim || col >= dim {
				continue
			}
			if pl.Mirrored {
				col = dim - 1 - col
			}
			v := Black
			if grid[row][col] {
				v = White
			}
			img.Set(r, c, v)
		}
	}
	return nil
}

// InnerCorners returns the corners of the tag's inner white square in image
// coordinates (row, col), starting at the tag's own top-left and clockwise
// in tag terms.
func InnerCorners(family sonar.TagFamily, pl Placement) [4][2]float64 {
	dim := float64(family.GridSize())
	side := dim * pl.CellSize
	lo, hi := 2*pl.CellSize, (dim-2)*pl.CellSize
	tag := [4][2]float64{{lo, lo}, {lo, hi}, {hi, hi}, {hi, lo}}

	sin, cos := math.Sincos(pl.Rotation)
	var out [4][2]float64
	for i, p := range tag {
		tr, tc := p[0]-side/2, p[1]-side/2
		if pl.Mirrored {
			tc = -tc
		}
		out[i] = [2]float64{
			pl.Row + side/2 + tr*cos + tc*sin,
			pl.Col + side/2 + tc*cos - tr*sin,
		}
	}
	return out
}

// Tag renders a single upright tag with a black margin, for printing or as
// a detection fixture.
func Tag(family sonar.TagFamily, id, cellSize, margin int) (*sonar.Image, error) {
	if cellSize <= 0 || margin < 0 {
		return nil, fmt.Errorf("invalid tag layout: cell size %d, margin %d", cellSize, margin)
	}
	if err := family.Validate(); err != nil {
		return nil, err
	}
	side := family.GridSize()*cellSize + 2*margin
	img := sonar.NewImage(side, side)
	pl := Placement{Row: float64(margin), Col: float64(margin), CellSize: float64(cellSize)}
	if err := Draw(img, family, id, pl); err != nil {
		return nil, err
	}
	return img, nil
}
