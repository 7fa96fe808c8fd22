package imaging

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sonartag/internal/sonar"
)

// DefaultCacheSize is the number of frames NewImageCache keeps.
const DefaultCacheSize = 32

// ImageCache provides thread-safe caching of loaded sonar images to avoid
// redundant disk reads and decoding.
//
// The cache stores decoded images keyed by their file path, together with
// the file's modification time and size at load. A Load for a path whose
// file has since changed decodes it again, so a frame file that a sonar
// driver rewrites in place is never served stale. Cached images are shared
// and must not be modified.
//
// # Memory Management
//
// The cache holds at most its capacity in images; loading a new path when
// full evicts the path loaded longest ago. Evict() and Clear() remove
// entries explicitly.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/frame.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tags, err := detector.Detect(img)
type ImageCache struct {
	mu       sync.RWMutex
	images   map[string]cacheEntry
	order    []string // paths, oldest load first
	capacity int
}

type cacheEntry struct {
	img     *sonar.Image
	modTime time.Time
	size    int64
}

// NewImageCache creates an empty cache holding DefaultCacheSize images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize creates an empty cache holding at most capacity images.
// Capacities below one are raised to one.
func NewImageCacheSize(capacity int) *ImageCache {
	return &ImageCache{
		images:   make(map[string]cacheEntry),
		capacity: max(capacity, 1),
	}
}

// Load retrieves a sonar image from the cache or loads it from disk.
//
// Any format the imaging library decodes (PNG, JPEG, GIF, TIFF, BMP) is
// accepted. Colour images are reduced to luminance; image y becomes the
// range row and x the azimuth column.
//
// The image is cached using the exact path string provided. Different paths
// to the same file will result in separate cache entries.
func (c *ImageCache) Load(path string) (*sonar.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.RLock()
	e, ok := c.images[path]
	c.mu.RUnlock()
	if ok && e.modTime.Equal(fi.ModTime()) && e.size == fi.Size() {
		return e.img, nil
	}

	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	img := sonar.FromGray(imaging.Grayscale(src))

	c.mu.Lock()
	c.store(path, cacheEntry{img: img, modTime: fi.ModTime(), size: fi.Size()})
	c.mu.Unlock()

	return img, nil
}

// store inserts or replaces an entry. The caller holds c.mu.
func (c *ImageCache) store(path string, e cacheEntry) {
	if _, ok := c.images[path]; ok {
		c.removeOrder(path)
	}
	for len(c.order) >= c.capacity {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.images[path] = e
	c.order = append(c.order, path)
}

func (c *ImageCache) removeOrder(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	if _, ok := c.images[path]; ok {
		delete(c.images, path)
		c.removeOrder(path)
	}
	c.mu.Unlock()
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded sonar frame.
type ImageInfo struct {
	// Rows is the number of range bins (image height).
	Rows int `json:"rows"`

	// Cols is the number of azimuth bins (image width).
	Cols int `json:"cols"`

	// Format is derived from the file extension, "unknown" if unrecognized.
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Intensity statistics over all pixels.
	MinIntensity  uint8   `json:"min_intensity"`
	MaxIntensity  uint8   `json:"max_intensity"`
	MeanIntensity float64 `json:"mean_intensity"`
	StdIntensity  float64 `json:"std_intensity"`
}

// LoadImageInfo loads an image into the cache (if not already cached) and
// returns its shape, format, file size and intensity statistics.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	case ".bmp":
		format = "bmp"
	}

	values := make([]float64, len(img.Pix))
	lo, hi := uint8(255), uint8(0)
	for i, v := range img.Pix {
		values[i] = float64(v)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	return &ImageInfo{
		Rows:          img.Rows,
		Cols:          img.Cols,
		Format:        format,
		FileSizeBytes: st.Size(),
		MinIntensity:  lo,
		MaxIntensity:  hi,
		MeanIntensity: roundTo(mean, 100),
		StdIntensity:  roundTo(std, 100),
	}, nil
}

// roundTo rounds v to 1/scale.
func roundTo(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}
