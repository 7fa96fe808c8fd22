package sonar

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFamily is returned for tag families that cannot be decoded.
var ErrInvalidFamily = errors.New("invalid tag family")

// TagFamily describes an AcTag family.
//
// A tag is a square grid of DataBits/4+1 cells per side: the outer ring holds
// the data bits, the next ring is black and the remaining inner square is
// white. Ring bit i, counted clockwise from the top-left cell, is bit
// DataBits-1-i of a codeword.
type TagFamily struct {
	Name               string   `json:"name" yaml:"name"`
	DataBits           int      `json:"data_bits" yaml:"data_bits"`
	MinHammingDistance int      `json:"min_hamming_distance" yaml:"min_hamming_distance"`
	TagSize            float64  `json:"tag_size" yaml:"tag_size"` // meters, inner white square side
	Codewords          []uint64 `json:"codewords" yaml:"codewords"`
}

// Validate checks the family can be sampled and matched.
func (f TagFamily) Validate() error {
	if f.DataBits <= 0 || f.DataBits%4 != 0 || f.DataBits > 64 {
		return fmt.Errorf("%w: %q has %d data bits, want a positive multiple of 4 up to 64", ErrInvalidFamily, f.Name, f.DataBits)
	}
	if f.DataBits < 16 {
		return fmt.Errorf("%w: %q needs at least 16 data bits for an inner square", ErrInvalidFamily, f.Name)
	}
	if f.MinHammingDistance <= 0 {
		return fmt.Errorf("%w: %q minimum hamming distance %d", ErrInvalidFamily, f.Name, f.MinHammingDistance)
	}
	if f.TagSize <= 0 {
		return fmt.Errorf("%w: %q tag size %g", ErrInvalidFamily, f.Name, f.TagSize)
	}
	if len(f.Codewords) == 0 {
		return fmt.Errorf("%w: %q has no codewords", ErrInvalidFamily, f.Name)
	}
	mask := f.Mask()
	for i, c := range f.Codewords {
		if c&^mask != 0 {
			return fmt.Errorf("%w: %q codeword %d (%#x) exceeds %d bits", ErrInvalidFamily, f.Name, i, c, f.DataBits)
		}
	}
	return nil
}

// GridSize is the number of tag cells per side.
func (f TagFamily) GridSize() int {
	return f.DataBits/4 + 1
}

// Diagonal is the inner square's diagonal in meters, the largest extent it
// can span in any orientation.
func (f TagFamily) Diagonal() float64 {
	return math.Sqrt(2 * f.TagSize * f.TagSize)
}

// Mask has the low DataBits bits set.
func (f TagFamily) Mask() uint64 {
	if f.DataBits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.DataBits) - 1
}

// MaxCorrections is the largest unambiguous number of bit corrections,
// exclusive: valid budgets are 0 <= k < MaxCorrections.
func (f TagFamily) MaxCorrections() int {
	return f.MinHammingDistance / 2
}
