package filter

import (
	"github.com/ironsheep/sonartag/internal/sonar"
)

// AdaptiveThreshold binarizes img against the mean of each pixel's
// (2r+1)x(2r+1) neighbourhood: a pixel is foreground when
//
//	value > mean - offset
//
// Edge pixels are replicated outside the image. This is the reference
// implementation, summing every window directly.
func AdaptiveThreshold(img *sonar.Image, radius int, offset float64, exec BandExecutor) (*sonar.Binary, error) {
	if err := checkInput(img, radius); err != nil {
		return nil, err
	}
	out := sonar.NewBinary(img.Rows, img.Cols)
	count := int64((2*radius + 1) * (2*radius + 1))

	executorOrSerial(exec).Run(img.Rows, func(start, end int) {
		for r := start; r < end; r++ {
			for c := 0; c < img.Cols; c++ {
				var sum int64
				for dr := -radius; dr <= radius; dr++ {
					for dc := -radius; dc <= radius; dc++ {
						sum += int64(img.Clamped(r+dr, c+dc))
					}
				}
				if isForeground(img.At(r, c), sum, count, offset) {
					out.Pix[r*img.Cols+c] = 1
				}
			}
		}
	})
	return out, nil
}

// AdaptiveThresholdIntegral produces the same output as AdaptiveThreshold
// using a summed-area table over the edge-padded image. Window sums are
// exact integers, so the comparison is bit-identical to direct summation.
func AdaptiveThresholdIntegral(img *sonar.Image, radius int, offset float64, exec BandExecutor) (*sonar.Binary, error) {
	if err := checkInput(img, radius); err != nil {
		return nil, err
	}
	out := sonar.NewBinary(img.Rows, img.Cols)
	count := int64((2*radius + 1) * (2*radius + 1))

	// sat[(i)*w+j] holds the sum of padded[0:i, 0:j].
	ph, pw := img.Rows+2*radius, img.Cols+2*radius
	w := pw + 1
	sat := make([]int64, (ph+1)*w)
	for i := 0; i < ph; i++ {
		var rowSum int64
		for j := 0; j < pw; j++ {
			rowSum += int64(img.Clamped(i-radius, j-radius))
			sat[(i+1)*w+j+1] = sat[i*w+j+1] + rowSum
		}
	}

	side := 2*radius + 1
	executorOrSerial(exec).Run(img.Rows, func(start, end int) {
		for r := start; r < end; r++ {
			// Window for (r, c) covers padded rows [r, r+side) and cols [c, c+side).
			top, bottom := r*w, (r+side)*w
			for c := 0; c < img.Cols; c++ {
				sum := sat[bottom+c+side] - sat[top+c+side] - sat[bottom+c] + sat[top+c]
				if isForeground(img.At(r, c), sum, count, offset) {
					out.Pix[r*img.Cols+c] = 1
				}
			}
		}
	})
	return out, nil
}

func isForeground(v uint8, sum, count int64, offset float64) bool {
	mean := float64(sum) / float64(count)
	return float64(v) > mean-offset
}
