package detection

import (
	"math/rand/v2"
)

// RandomSource supplies the roll offsets used when sampling contour points
// for line fits.
//
// NextIndex returns an index in [0, pool). Advance is called once after
// every sampled line, whether or not NextIndex was consulted for it.
type RandomSource interface {
	NextIndex(pool int) int
	Advance()
}

type seededSource struct {
	rng *rand.Rand
}

// NewSeededSource returns a uniform source. A non-nil seed makes the stream
// reproducible; stream separates independent consumers (one per contour) so
// their draws do not depend on scheduling order. A nil seed draws a fresh
// seed every call.
func NewSeededSource(seed *int64, stream uint64) RandomSource {
	if seed == nil {
		return &seededSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &seededSource{rng: rand.New(rand.NewPCG(uint64(*seed), stream))}
}

func (s *seededSource) NextIndex(pool int) int {
	return s.rng.IntN(pool)
}

func (s *seededSource) Advance() {}

// FixedRoll is a deterministic source that cycles a 32-bit counter, the
// quads_use_same_random_vals roll sequence. It is reset for every contour.
type FixedRoll struct {
	counter uint32
}

// NewFixedRoll starts the counter at start modulo 2^32. Negative starts wrap
// the way a floored modulo does.
func NewFixedRoll(start int64) *FixedRoll {
	const span = int64(1) << 32
	return &FixedRoll{counter: uint32(((start % span) + span) % span)}
}

// NextIndex returns the counter modulo pool.
func (f *FixedRoll) NextIndex(pool int) int {
	return int(f.counter % uint32(pool))
}

// Advance increments the counter, wrapping at 2^32.
func (f *FixedRoll) Advance() {
	f.counter++
}
