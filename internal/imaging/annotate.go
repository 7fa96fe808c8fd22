package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// AnnotateOptions controls the tag overlay.
type AnnotateOptions struct {
	// Color is a hex outline colour such as "#00FF00". Empty or invalid
	// values give every tag id its own colour.
	Color string

	// ShowIDs draws the tag id next to each tag's first corner.
	ShowIDs bool

	// Scale is an integer upscale factor applied before drawing, so
	// outlines stay one pixel wide on small frames. Values below 2 keep
	// the original size.
	Scale int
}

// MaxScale bounds the upscale factor of Annotate and Crop. Output size grows
// with its square.
const MaxScale = 16

// AnnotateResult contains the annotated image.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	TagCount    int    `json:"tag_count"`
}

// TagColor returns a stable, well separated outline colour for a tag id.
func TagColor(id int) colorful.Color {
	hue := math.Mod(float64(id)*137.508, 360)
	return colorful.Hsv(hue, 0.85, 1.0)
}

// Annotate draws the outline of every detected tag over the sonar image.
// The first corner of each tag is marked with a small filled square.
func Annotate(img *sonar.Image, tags []detection.DetectedTag, opts AnnotateOptions) (*AnnotateResult, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if opts.Scale > MaxScale {
		return nil, fmt.Errorf("scale %d exceeds the maximum of %d", opts.Scale, MaxScale)
	}
	scale := max(opts.Scale, 1)

	var base image.Image = img.Gray()
	if scale > 1 {
		base = imaging.Resize(base, img.Cols*scale, img.Rows*scale, imaging.NearestNeighbor)
	}
	bounds := base.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, base, bounds.Min, draw.Src)

	fixed, fixedErr := colorful.Hex(opts.Color)
	toPixel := func(p sonar.Point) image.Point {
		return image.Pt(p.Col*scale+scale/2, p.Row*scale+scale/2)
	}

	for _, tag := range tags {
		c := TagColor(tag.ID)
		if opts.Color != "" && fixedErr == nil {
			c = fixed
		}
		outline := rgba(c)

		for i := range tag.CornersPx {
			a := toPixel(tag.CornersPx[i])
			b := toPixel(tag.CornersPx[(i+1)%4])
			drawLine(result, a, b, outline)
		}
		first := toPixel(tag.CornersPx[0])
		fillSquare(result, first, 2, outline)

		if opts.ShowIDs {
			drawLabel(result, first.X+4, first.Y+4, strconv.Itoa(tag.ID), color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
		}
	}

	encoded, err := encodePNG(result)
	if err != nil {
		return nil, err
	}
	return &AnnotateResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		TagCount:    len(tags),
	}, nil
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// encodePNG encodes img as base64 PNG.
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawLine draws a Bresenham line, clipped to the image.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	bounds := img.Bounds()
	e := dx + dy
	for {
		if a.In(bounds) {
			img.SetRGBA(a.X, a.Y, c)
		}
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

func fillSquare(img *image.RGBA, centre image.Point, half int, c color.RGBA) {
	r := image.Rect(centre.X-half, centre.Y-half, centre.X+half+1, centre.Y+half+1).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel digit font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if p := image.Pt(cx+col, y+row); pixel == '1' && p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
