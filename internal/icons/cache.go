package icons

import (
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/golang-lru/v2"
)

// Name identifies one of the indicator bitmaps
type Name string

const (
	RecordStartedGreen Name = "record_started_green.png"
	RecordStartedRed   Name = "record_started_red.png"
	RecordStopped      Name = "record_stopped.png"
	StreamStartedGreen Name = "stream_started_green.png"
	StreamStartedRed   Name = "stream_started_red.png"
	StreamStopped      Name = "stream_stopped.png"
)

// All lists the six bitmaps of the asset set
var All = []Name{
	RecordStartedGreen,
	RecordStartedRed,
	RecordStopped,
	StreamStartedGreen,
	StreamStartedRed,
	StreamStopped,
}

// Image is a decoded bitmap the renderer can display
type Image interface {
	Width() int
	Height() int
}

// Loader decodes bitmaps and produces downscaled copies
type Loader interface {
	Load(name Name) (Image, error)
	Scale(img Image, factor int) (Image, error)
}

type cacheKey struct {
	name   Name
	factor int
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s@1/%d", k.name, k.factor)
}

// Cache keeps decoded bitmaps keyed by (icon, scale factor), so a given
// downscale is computed once and reused across settings resolutions
type Cache struct {
	cache     *lru.Cache[cacheKey, Image]
	loader    Loader
	mu        sync.Mutex
	cacheHits int64
	cacheMiss int64
}

// DefaultCacheSize holds every icon at every scale factor
const DefaultCacheSize = 18

// NewCache creates an icon cache holding at most size entries
func NewCache(loader Loader, size int) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("icon loader is nil")
	}

	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, Image](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}

	return &Cache{
		cache:  cache,
		loader: loader,
	}, nil
}

// Get returns the icon downscaled by factor, loading and scaling on a miss
func (c *Cache) Get(name Name, factor int) (Image, error) {
	if factor < 1 {
		factor = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{name: name, factor: factor}
	if img, ok := c.cache.Get(key); ok {
		c.cacheHits++
		return img, nil
	}
	c.cacheMiss++

	log.Printf("[ICON-CACHE] MISS: %s", key)

	base, err := c.originalLocked(name)
	if err != nil {
		return nil, err
	}

	if factor == 1 {
		return base, nil
	}

	scaled, err := c.loader.Scale(base, factor)
	if err != nil {
		return nil, fmt.Errorf("failed to scale icon %s by 1/%d: %w", name, factor, err)
	}

	c.cache.Add(key, scaled)
	log.Printf("[ICON-CACHE] STORED: %s %dx%d (cache size: %d)", key, scaled.Width(), scaled.Height(), c.cache.Len())

	return scaled, nil
}

func (c *Cache) originalLocked(name Name) (Image, error) {
	key := cacheKey{name: name, factor: 1}
	if img, ok := c.cache.Get(key); ok {
		return img, nil
	}

	img, err := c.loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load icon %s: %w", name, err)
	}

	c.cache.Add(key, img)
	return img, nil
}

// GetStats returns cache statistics
func (c *Cache) GetStats() (hits, misses int, hitRate float64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits = int(c.cacheHits)
	misses = int(c.cacheMiss)
	size = c.cache.Len()

	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return hits, misses, hitRate, size
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
	log.Printf("[ICON-CACHE] Cache cleared")
}
