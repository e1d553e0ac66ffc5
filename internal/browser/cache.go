// Package browser orchestrates the one-shot pipeline (bytes → tokens
// → DOM → styles → layout tree → canvas) and owns the one piece of
// shared mutable state in the engine: the ImageCache, scoped to one
// browser instance, never a package-level singleton.
package browser

import (
	"sync"

	stdimage "image"
)

// ImageCache is a concurrent mapping from resolved image URL to
// decoded pixels. Readers see a consistent snapshot; there is no
// cross-key invariant, so a plain RWMutex-guarded map gives atomic
// get/set/contains/clear/count.
type ImageCache struct {
	mu sync.RWMutex
	m  map[string]stdimage.Image
}

func NewImageCache() *ImageCache {
	return &ImageCache{m: make(map[string]stdimage.Image)}
}

func (c *ImageCache) Get(url string) (stdimage.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.m[url]
	return img, ok
}

func (c *ImageCache) Set(url string, img stdimage.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[url] = img
}

func (c *ImageCache) Contains(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[url]
	return ok
}

func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]stdimage.Image)
}

func (c *ImageCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
