package detection

import (
	"math/bits"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// DecodeOptions configures codeword matching.
type DecodeOptions struct {
	// Corrections is the largest Hamming distance accepted as a match.
	Corrections int

	// MatchMirrored also tries the four mirrored orientations, for tags
	// seen from behind or sonars mounted upside down.
	MatchMirrored bool

	Sampler Sampler
}

// DetectedTag is a decoded tag.
//
// Corners start at the tag's own top-left corner and follow the tag's
// clockwise order, independent of how the tag appears in the image.
type DetectedTag struct {
	ID              int            `json:"id"`
	CornersPx       [4]sonar.Point `json:"corners_px"`
	CornersPhys     [4]sonar.Polar `json:"corners_phys"`
	Rotation        int            `json:"rotation"` // quarter turns from the quad's first corner
	Mirrored        bool           `json:"mirrored"`
	HammingDistance int            `json:"hamming_distance"`
}

// DecodeTags decodes every quad in order and returns the successful
// decodes.
func DecodeTags(bin *sonar.Binary, quads []Quad, params sonar.Params, family sonar.TagFamily, opts DecodeOptions) []DetectedTag {
	var tags []DetectedTag
	for _, q := range quads {
		if tag, ok := DecodeTag(bin, q, params, family, opts); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// DecodeTag samples the data ring around q in bin and matches it against
// the family's codewords.
//
// The match with the smallest Hamming distance wins if that distance is at
// most opts.Corrections. ok is false when a sample falls outside the image,
// nothing is close enough, or two different (codeword, orientation)
// candidates share the smallest distance.
func DecodeTag(bin *sonar.Binary, q Quad, params sonar.Params, family sonar.TagFamily, opts DecodeOptions) (tag DetectedTag, ok bool) {
	n := family.DataBits
	locs := DataBitLocations(q, n, opts.Sampler)

	// Ring bit i is stored at word bit n-1-i.
	var word uint64
	for i, p := range locs {
		if p.Row < 0 || p.Col < 0 || p.Row >= bin.Rows || p.Col >= bin.Cols {
			return DetectedTag{}, false
		}
		if bin.At(p.Row, p.Col) != 0 {
			word |= 1 << (n - 1 - i)
		}
	}

	m, ok := matchCodeword(word, family, opts.Corrections, opts.MatchMirrored)
	if !ok {
		return DetectedTag{}, false
	}

	tag = DetectedTag{ID: m.id, Rotation: m.rotation, Mirrored: m.mirrored, HammingDistance: m.distance}
	for i := range tag.CornersPx {
		var src int
		if m.mirrored {
			src = (m.rotation - i + 4) % 4
		} else {
			src = (i + 4 - m.rotation) % 4
		}
		tag.CornersPx[i] = q[src]
		tag.CornersPhys[i] = params.PixelToPolar(q[src], bin.Rows, bin.Cols)
	}
	return tag, true
}

type codewordMatch struct {
	id       int
	rotation int
	mirrored bool
	distance int
}

// matchCodeword finds the unique closest (codeword, orientation) to word.
//
// Rotation k aligns sampled bit i with codeword bit (i + k*n/4) mod n, which
// is a left rotation of the codeword by k*n/4 bits. Mirrored orientation k
// aligns sampled bit i with codeword bit (k*n/4 - i) mod n.
func matchCodeword(word uint64, family sonar.TagFamily, corrections int, mirrored bool) (codewordMatch, bool) {
	n := family.DataBits
	quarter := n / 4
	mask := family.Mask()

	best := codewordMatch{distance: n + 1}
	ties := 0
	consider := func(c codewordMatch) {
		switch {
		case c.distance < best.distance:
			best, ties = c, 0
		case c.distance == best.distance:
			ties++
		}
	}

	for id, code := range family.Codewords {
		for k := 0; k < 4; k++ {
			rotated := rotateLeft(code, k*quarter, n, mask)
			consider(codewordMatch{id: id, rotation: k, distance: bits.OnesCount64(word ^ rotated)})
			if mirrored {
				consider(codewordMatch{id: id, rotation: k, mirrored: true, distance: bits.OnesCount64(word ^ mirror(code, k*quarter, n))})
			}
		}
	}
	if best.distance > corrections || ties > 0 {
		return codewordMatch{}, false
	}
	return best, true
}

// rotateLeft rotates the low n bits of w left by s.
func rotateLeft(w uint64, s, n int, mask uint64) uint64 {
	s %= n
	if s == 0 {
		return w & mask
	}
	return ((w << s) | (w >> (n - s))) & mask
}

// mirror returns the word whose ring bit i is ring bit (s - i) mod n of w.
func mirror(w uint64, s, n int) uint64 {
	var out uint64
	for i := 0; i < n; i++ {
		src := ((s-i)%n + n) % n
		if w&(1<<(n-1-src)) != 0 {
			out |= 1 << (n - 1 - i)
		}
	}
	return out
}
