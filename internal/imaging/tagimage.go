package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sonartag/internal/render"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// TagImageResult contains a rendered family tag.
type TagImageResult struct {
	ID          int    `json:"id"`
	Family      string `json:"family"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderTag draws tag id of family as a PNG with cellSize pixels per cell
// and a black margin. Mirrored tags are flipped left to right, as seen by
// an upward looking sonar.
func RenderTag(family sonar.TagFamily, id, cellSize, margin int, mirrored bool) (*TagImageResult, error) {
	if margin < 0 {
		return nil, fmt.Errorf("margin must be non-negative, got %d", margin)
	}
	img, err := render.Tag(family, id, cellSize, margin)
	if err != nil {
		return nil, err
	}

	var out image.Image = img.Gray()
	if mirrored {
		out = imaging.FlipH(out)
	}
	encoded, err := encodePNG(out)
	if err != nil {
		return nil, err
	}
	return &TagImageResult{
		ID:          id,
		Family:      family.Name,
		Width:       img.Cols,
		Height:      img.Rows,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}
