package filter

import (
	"log/slog"
	"runtime"

	"github.com/anthonynsimon/bild/parallel"
	"golang.org/x/sync/errgroup"
)

// BandExecutor dispatches work over contiguous, non-overlapping row bands.
//
// Run must call fn for bands that exactly cover [0, rows) and return only
// after every call has finished. Callers guarantee that fn writes only to
// the rows of its own band, so implementations need no locking.
type BandExecutor interface {
	Run(rows int, fn func(start, end int))
}

// Serial runs the whole image as a single band on the calling goroutine.
type Serial struct{}

// Run implements BandExecutor.
func (Serial) Run(rows int, fn func(start, end int)) {
	if rows > 0 {
		fn(0, rows)
	}
}

// Pool splits the rows into Workers bands and processes them concurrently.
type Pool struct {
	// Workers is the requested band count. Zero or negative uses NumCPU.
	// Values larger than the row count are clamped.
	Workers int

	// Logger receives the clamp warning. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewPool returns a pool executor with the given worker count.
func NewPool(workers int, logger *slog.Logger) *Pool {
	return &Pool{Workers: workers, Logger: logger}
}

// Run implements BandExecutor.
func (p *Pool) Run(rows int, fn func(start, end int)) {
	if rows <= 0 {
		return
	}
	k := p.bandCount(rows)
	var g errgroup.Group
	for _, b := range SplitBands(rows, k) {
		b := b
		g.Go(func() error {
			fn(b[0], b[1])
			return nil
		})
	}
	// Bands never fail; the group only joins them.
	g.Wait()
}

func (p *Pool) bandCount(rows int) int {
	k := p.Workers
	if k <= 0 {
		k = runtime.NumCPU()
	}
	if k > rows {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("worker count exceeds image rows, clamping", "workers", k, "rows", rows)
		k = rows
	}
	return k
}

// Bild delegates band scheduling to bild's parallel package, which splits
// rows across GOMAXPROCS goroutines.
type Bild struct{}

// Run implements BandExecutor.
func (Bild) Run(rows int, fn func(start, end int)) {
	if rows > 0 {
		parallel.Line(rows, fn)
	}
}

// SplitBands partitions [0, rows) into k contiguous [start, end) bands whose
// sizes differ by at most one, larger bands first. k is clamped to [1, rows].
func SplitBands(rows, k int) [][2]int {
	if rows <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > rows {
		k = rows
	}
	bands := make([][2]int, 0, k)
	size, extra := rows/k, rows%k
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i < extra {
			end++
		}
		bands = append(bands, [2]int{start, end})
		start = end
	}
	return bands
}

func executorOrSerial(exec BandExecutor) BandExecutor {
	if exec == nil {
		return Serial{}
	}
	return exec
}
