package sonar

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidImage is returned when an image has no pixels or its pixel
// buffer does not match its dimensions.
var ErrInvalidImage = errors.New("invalid sonar image")

// Point is a pixel position in (row, column) order.
//
// Rows index range bins (row 0 is the far range) and columns index azimuth
// bins, so Point deliberately does not reuse image.Point's (X, Y) naming.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Image is a range-azimuth intensity grid with 8-bit samples stored row-major.
//
// Images are treated as immutable once a pipeline stage has produced them;
// every stage allocates a new Image for its output.
type Image struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewImage allocates a zeroed image of the given shape.
func NewImage(rows, cols int) *Image {
	return &Image{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// NewImageFromRows builds an image from a slice of equally sized rows.
func NewImageFromRows(rows [][]uint8) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty pixel data", ErrInvalidImage)
	}
	img := NewImage(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != img.Cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidImage, r, len(row), img.Cols)
		}
		copy(img.Pix[r*img.Cols:], row)
	}
	return img, nil
}

// FromGray converts any image.Image into a sonar image using its luminance.
// Image y maps to row and x maps to column.
func FromGray(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(b.Dy(), b.Dx())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(src.At(x+b.Min.X, y+b.Min.Y)).(color.Gray)
			img.Pix[y*img.Cols+x] = g.Y
		}
	}
	return img
}

// Validate reports whether the image shape and buffer are consistent.
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if img.Rows <= 0 || img.Cols <= 0 {
		return fmt.Errorf("%w: shape %dx%d", ErrInvalidImage, img.Rows, img.Cols)
	}
	if len(img.Pix) != img.Rows*img.Cols {
		return fmt.Errorf("%w: %d pixels for shape %dx%d", ErrInvalidImage, len(img.Pix), img.Rows, img.Cols)
	}
	return nil
}

// At returns the intensity at (row, col). No bounds checking is performed.
func (img *Image) At(row, col int) uint8 {
	return img.Pix[row*img.Cols+col]
}

// Set writes the intensity at (row, col).
func (img *Image) Set(row, col int, v uint8) {
	img.Pix[row*img.Cols+col] = v
}

// Clamped returns the intensity at (row, col) with edge replication for
// coordinates outside the image.
func (img *Image) Clamped(row, col int) uint8 {
	return img.Pix[clamp(row, 0, img.Rows-1)*img.Cols+clamp(col, 0, img.Cols-1)]
}

// Gray renders the image as an *image.Gray for encoding or display.
func (img *Image) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, img.Cols, img.Rows))
	copy(g.Pix, img.Pix)
	return g
}

// Binary is a thresholded image whose pixels are 0 (background, black) or
// 1 (foreground, white).
type Binary struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewBinary allocates an all-background binary image.
func NewBinary(rows, cols int) *Binary {
	return &Binary{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// At returns the bit at (row, col). No bounds checking is performed.
func (b *Binary) At(row, col int) uint8 {
	return b.Pix[row*b.Cols+col]
}

// Set writes the bit at (row, col); any non-zero value is stored as 1.
func (b *Binary) Set(row, col int, v uint8) {
	if v != 0 {
		v = 1
	}
	b.Pix[row*b.Cols+col] = v
}

// Validate reports whether the binary image shape and buffer are consistent.
func (b *Binary) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil binary image", ErrInvalidImage)
	}
	if b.Rows <= 0 || b.Cols <= 0 || len(b.Pix) != b.Rows*b.Cols {
		return fmt.Errorf("%w: binary shape %dx%d with %d pixels", ErrInvalidImage, b.Rows, b.Cols, len(b.Pix))
	}
	return nil
}

// Gray renders the binary image with foreground as 255.
func (b *Binary) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.Cols, b.Rows))
	for i, v := range b.Pix {
		g.Pix[i] = v * 255
	}
	return g
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
