package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Region is the cropped area in source pixels, rows and columns
	// half-open.
	Region Region `json:"region"`
}

// Region is a rectangle of rows [Row1, Row2) and columns [Col1, Col2).
type Region struct {
	Row1 int `json:"row1"`
	Col1 int `json:"col1"`
	Row2 int `json:"row2"`
	Col2 int `json:"col2"`
}

// Crop extracts a region of a sonar image and optionally rescales it.
func Crop(img *sonar.Image, reg Region, scale float64) (*CropResult, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if scale > MaxScale {
		return nil, fmt.Errorf("scale %g exceeds the maximum of %d", scale, MaxScale)
	}
	if reg.Row1 < 0 || reg.Col1 < 0 || reg.Row2 > img.Rows || reg.Col2 > img.Cols {
		return nil, fmt.Errorf("crop region rows [%d,%d) cols [%d,%d) outside image %dx%d",
			reg.Row1, reg.Row2, reg.Col1, reg.Col2, img.Rows, img.Cols)
	}
	if reg.Row1 >= reg.Row2 || reg.Col1 >= reg.Col2 {
		return nil, fmt.Errorf("invalid crop region: row1 must be < row2, col1 must be < col2")
	}

	cropped := imaging.Crop(img.Gray(), image.Rect(reg.Col1, reg.Row1, reg.Col2, reg.Row2))

	if scale != 1.0 && scale > 0 {
		newWidth := max(int(float64(cropped.Bounds().Dx())*scale), 1)
		newHeight := max(int(float64(cropped.Bounds().Dy())*scale), 1)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := encodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Region:      reg,
	}, nil
}

// TagRegion returns the bounding box of a tag's corners grown by margin
// pixels and clipped to a rows x cols image.
func TagRegion(tag detection.DetectedTag, margin, rows, cols int) Region {
	reg := Region{Row1: rows, Col1: cols, Row2: -1, Col2: -1}
	for _, p := range tag.CornersPx {
		reg.Row1 = min(reg.Row1, p.Row)
		reg.Col1 = min(reg.Col1, p.Col)
		reg.Row2 = max(reg.Row2, p.Row)
		reg.Col2 = max(reg.Col2, p.Col)
	}
	return Region{
		Row1: max(reg.Row1-margin, 0),
		Col1: max(reg.Col1-margin, 0),
		Row2: min(reg.Row2+margin+1, rows),
		Col2: min(reg.Col2+margin+1, cols),
	}
}

// CropTag crops the area around a detected tag, including margin pixels on
// every side where the image allows.
func CropTag(img *sonar.Image, tag detection.DetectedTag, margin int, scale float64) (*CropResult, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if margin < 0 {
		return nil, fmt.Errorf("margin must be non-negative, got %d", margin)
	}
	return Crop(img, TagRegion(tag, margin, img.Rows, img.Cols), scale)
}
