package filter

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// noisyImage returns a deterministic pseudo-random image.
func noisyImage(t *testing.T, rows, cols int, seed uint64) *sonar.Image {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	img := sonar.NewImage(rows, cols)
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

func TestSplitBands(t *testing.T) {
	tests := []struct {
		rows, k int
		want    [][2]int
	}{
		{10, 3, [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{4, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}},
		{3, 8, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{5, 0, [][2]int{{0, 5}}},
	}
	for _, tt := range tests {
		got := SplitBands(tt.rows, tt.k)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitBands(%d, %d) = %v, want %v", tt.rows, tt.k, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitBands(%d, %d)[%d] = %v, want %v", tt.rows, tt.k, i, got[i], tt.want[i])
			}
		}
	}
	if SplitBands(0, 4) != nil {
		t.Error("SplitBands(0, 4) should be nil")
	}
}

func TestMedianRadiusZeroCopies(t *testing.T) {
	img := noisyImage(t, 6, 5, 1)
	out, err := Median(img, 0, nil)
	if err != nil {
		t.Fatalf("Median failed: %v", err)
	}
	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("pixel %d = %d, want %d", i, out.Pix[i], img.Pix[i])
		}
	}
	out.Pix[0]++
	if out.Pix[0] == img.Pix[0] {
		t.Error("radius 0 output aliases the input")
	}
}

func TestMedianRemovesSpeckle(t *testing.T) {
	img := sonar.NewImage(7, 7)
	for i := range img.Pix {
		img.Pix[i] = 40
	}
	img.Set(3, 3, 250)

	for name, fn := range map[string]func(*sonar.Image, int, BandExecutor) (*sonar.Image, error){
		"sort":      Median,
		"histogram": MedianHistogram,
	} {
		out, err := fn(img, 1, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := out.At(3, 3); got != 40 {
			t.Errorf("%s: speckle = %d, want 40", name, got)
		}
	}
}

func TestMedianConstantImage(t *testing.T) {
	filters := map[string]func(*sonar.Image, int, BandExecutor) (*sonar.Image, error){
		"sort":      Median,
		"histogram": MedianHistogram,
	}
	executors := map[string]BandExecutor{
		"serial": Serial{},
		"pool":   NewPool(4, nil),
		"bild":   Bild{},
	}

	img := sonar.NewImage(6, 9)
	for i := range img.Pix {
		img.Pix[i] = 137
	}

	for fname, fn := range filters {
		for ename, exec := range executors {
			for _, radius := range []int{0, 1, 4, 12} {
				out, err := fn(img, radius, exec)
				if err != nil {
					t.Fatalf("%s/%s radius %d: %v", fname, ename, radius, err)
				}
				if out.Rows != img.Rows || out.Cols != img.Cols {
					t.Fatalf("%s/%s radius %d: shape %dx%d", fname, ename, radius, out.Rows, out.Cols)
				}
				for i, v := range out.Pix {
					if v != 137 {
						t.Errorf("%s/%s radius %d: pixel %d = %d, want 137", fname, ename, radius, i, v)
						break
					}
				}
			}
		}
	}
}

func TestMedianEdgeReplication(t *testing.T) {
	// Corner window of radius 1 sees the corner value four times.
	img, _ := sonar.NewImageFromRows([][]uint8{
		{200, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
	})
	out, err := Median(img, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.At(0, 0); got != 0 {
		t.Errorf("corner median = %d, want 0", got)
	}
	img.Set(0, 1, 200)
	out, _ = Median(img, 1, nil)
	if got := out.At(0, 0); got != 200 {
		t.Errorf("corner median with replicated neighbour = %d, want 200", got)
	}
}

func TestMedianImplementationsAgree(t *testing.T) {
	executors := map[string]BandExecutor{
		"serial": Serial{},
		"pool":   NewPool(4, nil),
		"bild":   Bild{},
	}
	for _, radius := range []int{1, 2, 4} {
		img := noisyImage(t, 23, 31, uint64(radius))
		want, err := Median(img, radius, Serial{})
		if err != nil {
			t.Fatal(err)
		}
		for name, exec := range executors {
			got, err := MedianHistogram(img, radius, exec)
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			for i := range want.Pix {
				if got.Pix[i] != want.Pix[i] {
					t.Fatalf("radius %d %s: pixel %d = %d, want %d", radius, name, i, got.Pix[i], want.Pix[i])
				}
			}
		}
	}
}

func TestThresholdImplementationsAgree(t *testing.T) {
	for _, tc := range []struct {
		radius int
		offset float64
	}{
		{1, 0}, {3, 1}, {8, 1}, {5, -2.5}, {0, 1},
	} {
		img := noisyImage(t, 19, 27, uint64(tc.radius)+11)
		want, err := AdaptiveThreshold(img, tc.radius, tc.offset, nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := AdaptiveThresholdIntegral(img, tc.radius, tc.offset, NewPool(3, nil))
		if err != nil {
			t.Fatal(err)
		}
		for i := range want.Pix {
			if got.Pix[i] != want.Pix[i] {
				t.Fatalf("radius %d offset %g: pixel %d = %d, want %d", tc.radius, tc.offset, i, got.Pix[i], want.Pix[i])
			}
		}
	}
}

func TestThresholdPolarity(t *testing.T) {
	img := sonar.NewImage(9, 9)
	for r := 3; r < 6; r++ {
		for c := 3; c < 6; c++ {
			img.Set(r, c, 200)
		}
	}
	// With a negative offset flat regions are background.
	out, err := AdaptiveThresholdIntegral(img, 2, -1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(4, 4) != 1 {
		t.Error("bright centre should be foreground")
	}
	if out.At(0, 0) != 0 {
		t.Error("flat dark corner should be background")
	}
	if out.At(4, 2) != 0 {
		t.Error("dark pixel beside the bright block should be background")
	}

	// With a positive offset, flat regions pass value > mean - offset.
	out, _ = AdaptiveThreshold(img, 1, 1, nil)
	if out.At(0, 0) != 1 {
		t.Error("flat region with positive offset should be foreground")
	}
}

func TestInvalidInput(t *testing.T) {
	img := noisyImage(t, 4, 4, 3)
	if _, err := Median(img, -1, nil); !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("negative radius: got %v, want ErrInvalidRadius", err)
	}
	if _, err := AdaptiveThresholdIntegral(img, -2, 0, nil); !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("negative radius: got %v, want ErrInvalidRadius", err)
	}
	bad := &sonar.Image{Rows: 3, Cols: 3, Pix: make([]uint8, 4)}
	if _, err := MedianHistogram(bad, 1, nil); !errors.Is(err, sonar.ErrInvalidImage) {
		t.Errorf("bad buffer: got %v, want ErrInvalidImage", err)
	}
	if _, err := AdaptiveThreshold(&sonar.Image{}, 1, 0, nil); !errors.Is(err, sonar.ErrInvalidImage) {
		t.Errorf("empty image: got %v, want ErrInvalidImage", err)
	}
}

func TestPoolClampsWorkers(t *testing.T) {
	p := NewPool(64, nil)
	calls := make([]int, 3)
	p.Run(3, func(start, end int) {
		for r := start; r < end; r++ {
			calls[r]++
		}
	})
	for r, n := range calls {
		if n != 1 {
			t.Errorf("row %d visited %d times", r, n)
		}
	}
}
