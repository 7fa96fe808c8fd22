package filter

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// ErrInvalidRadius is returned for negative kernel radii.
var ErrInvalidRadius = errors.New("invalid kernel radius")

// Median replaces every pixel with the median of its (2r+1)x(2r+1)
// neighbourhood, replicating edge pixels outside the image.
//
// This is the reference implementation: each window is sorted and its
// middle element taken. MedianHistogram produces identical output faster.
func Median(img *sonar.Image, radius int, exec BandExecutor) (*sonar.Image, error) {
	if err := checkInput(img, radius); err != nil {
		return nil, err
	}
	out := sonar.NewImage(img.Rows, img.Cols)
	if radius == 0 {
		copy(out.Pix, img.Pix)
		return out, nil
	}

	executorOrSerial(exec).Run(img.Rows, func(start, end int) {
		side := 2*radius + 1
		window := make([]float64, side*side)
		for r := start; r < end; r++ {
			for c := 0; c < img.Cols; c++ {
				i := 0
				for dr := -radius; dr <= radius; dr++ {
					for dc := -radius; dc <= radius; dc++ {
						window[i] = float64(img.Clamped(r+dr, c+dc))
						i++
					}
				}
				sort.Float64s(window)
				out.Set(r, c, uint8(stat.Quantile(0.5, stat.Empirical, window, nil)))
			}
		}
	})
	return out, nil
}

// MedianHistogram computes the same result as Median using a sliding
// 256-bin histogram per row, updating one column of the window per step.
func MedianHistogram(img *sonar.Image, radius int, exec BandExecutor) (*sonar.Image, error) {
	if err := checkInput(img, radius); err != nil {
		return nil, err
	}
	out := sonar.NewImage(img.Rows, img.Cols)
	if radius == 0 {
		copy(out.Pix, img.Pix)
		return out, nil
	}

	side := 2*radius + 1
	half := side * side / 2

	executorOrSerial(exec).Run(img.Rows, func(start, end int) {
		var hist [256]int
		for r := start; r < end; r++ {
			hist = [256]int{}
			for dc := -radius; dc <= radius; dc++ {
				addColumn(&hist, img, r, dc, radius, 1)
			}
			out.Set(r, 0, histogramMedian(&hist, half))
			for c := 1; c < img.Cols; c++ {
				addColumn(&hist, img, r, c-radius-1, radius, -1)
				addColumn(&hist, img, r, c+radius, radius, 1)
				out.Set(r, c, histogramMedian(&hist, half))
			}
		}
	})
	return out, nil
}

// addColumn adds (delta=1) or removes (delta=-1) the window column at col,
// centred on row, to the histogram.
func addColumn(hist *[256]int, img *sonar.Image, row, col, radius, delta int) {
	for dr := -radius; dr <= radius; dr++ {
		hist[img.Clamped(row+dr, col)] += delta
	}
}

// histogramMedian returns the value whose cumulative count first exceeds
// half, i.e. the element at sorted index half.
func histogramMedian(hist *[256]int, half int) uint8 {
	seen := 0
	for v := 0; v < 256; v++ {
		seen += hist[v]
		if seen > half {
			return uint8(v)
		}
	}
	return 255
}

func checkInput(img *sonar.Image, radius int) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if radius < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	return nil
}
