package imaging

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// ErrOutsideRoot is returned for an asset reference that resolves outside
// the cache root.
var ErrOutsideRoot = errors.New("asset reference escapes asset root")

// Default cache budget.
const (
	DefaultCacheBytes   = 256 << 20
	DefaultCacheEntries = 128
)

// CacheOptions configures an AssetCache.
type CacheOptions struct {
	// Root is the directory relative references are resolved against.
	// When set, references may not leave it. When empty, references are
	// used as given.
	Root string

	// MaxBytes bounds the decoded size of all cached images, counted as
	// width*height*4. Zero means DefaultCacheBytes.
	MaxBytes int64

	// MaxEntries bounds the number of cached images. Zero means
	// DefaultCacheEntries.
	MaxEntries int

	Logger zerolog.Logger
}

// AssetCache is a thread-safe LRU of decoded images, bounded by both
// decoded byte size and entry count.
//
// It resolves the image references of Image parameter values and is the
// compositor's asset source. An image larger than the whole byte budget is
// returned but never cached.
//
// # Example Usage
//
//	cache := imaging.NewAssetCache(imaging.CacheOptions{Root: "./assets"})
//	img, err := cache.Image(ctx, "teams/hawks.png")
type AssetCache struct {
	opts CacheOptions

	mu    sync.Mutex
	ll    *list.List // front is most recently used
	items map[string]*list.Element
	bytes int64
}

type entry struct {
	key  string
	img  image.Image
	size int64
}

// NewAssetCache creates an empty cache.
func NewAssetCache(opts CacheOptions) *AssetCache {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultCacheBytes
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultCacheEntries
	}
	return &AssetCache{
		opts:  opts,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Image resolves ref against the root and returns the decoded image,
// loading it on a miss.
func (c *AssetCache) Image(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return c.Load(path)
}

// Resolve maps a reference to a file path.
func (c *AssetCache) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty asset reference")
	}
	if c.opts.Root == "" {
		return filepath.Clean(ref), nil
	}
	rel := filepath.FromSlash(ref)
	if filepath.IsAbs(rel) {
		r, err := filepath.Rel(c.opts.Root, rel)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
		}
		rel = r
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return filepath.Join(c.opts.Root, rel), nil
}

// Load returns the image at path, from the cache when present.
//
// The image is cached using the exact path string provided. Different
// paths to the same file result in separate cache entries.
func (c *AssetCache) Load(path string) (image.Image, error) {
	c.mu.Lock()
	if el, ok := c.items[path]; ok {
		c.ll.MoveToFront(el)
		img := el.Value.(*entry).img
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	c.add(path, img)
	return img, nil
}

func (c *AssetCache) add(key string, img image.Image) {
	b := img.Bounds()
	size := int64(b.Dx()) * int64(b.Dy()) * 4
	if size > c.opts.MaxBytes {
		c.opts.Logger.Debug().Str("path", key).Int64("bytes", size).Msg("image exceeds cache budget, not cached")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent miss may have loaded the same path.
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, img: img, size: size})
	c.bytes += size
	for c.bytes > c.opts.MaxBytes || c.ll.Len() > c.opts.MaxEntries {
		c.removeElement(c.ll.Back())
	}
}

func (c *AssetCache) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.items, e.key)
	c.bytes -= e.size
	c.opts.Logger.Debug().Str("path", e.key).Msg("asset evicted")
}

// Evict removes one path from the cache. Unknown paths are ignored.
func (c *AssetCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[path]; ok {
		c.removeElement(el)
	}
}

// Clear empties the cache.
func (c *AssetCache) Clear() {
	c.mu.Lock()
	c.ll.Init()
	clear(c.items)
	c.bytes = 0
	c.mu.Unlock()
}

// Stats reports the entry count and decoded bytes held.
func (c *AssetCache) Stats() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len(), c.bytes
}

// ImageInfo contains metadata about an asset file.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif" or "unknown", by extension.
	Format string `json:"format"`

	ColorDepth    string `json:"color_depth"`
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads an asset through the cache and describes it.
//
// Color depth is "16-bit" for *image.RGBA64, *image.NRGBA64 and
// *image.Gray16, "8-bit" otherwise.
func LoadImageInfo(cache *AssetCache, ref string) (*ImageInfo, error) {
	path, err := cache.Resolve(ref)
	if err != nil {
		return nil, err
	}
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
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
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}
