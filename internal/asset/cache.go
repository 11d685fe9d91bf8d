package asset

import (
	"sync"

	"texforge/internal/imaging"
)

// DecodeFunc decodes the image stored at path.
type DecodeFunc func(path string) (*imaging.Image, error)

type cacheEntry struct {
	img *imaging.Image
	err error
}

// LoadCache memoizes decodes by path and counts how often each path was
// actually decoded. Failed decodes are cached too so a broken file is read
// once.
type LoadCache struct {
	mu      sync.Mutex
	decode  DecodeFunc
	entries map[string]cacheEntry
	decodes map[string]int
}

// NewLoadCache builds a cache around decode. A nil decode uses imaging.DecodeFile.
func NewLoadCache(decode DecodeFunc) *LoadCache {
	if decode == nil {
		decode = imaging.DecodeFile
	}
	return &LoadCache{
		decode:  decode,
		entries: make(map[string]cacheEntry),
		decodes: make(map[string]int),
	}
}

// Load returns the image for path, decoding it on first use.
func (c *LoadCache) Load(path string) (*imaging.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[path]; ok {
		return entry.img, entry.err
	}
	img, err := c.decode(path)
	c.decodes[path]++
	c.entries[path] = cacheEntry{img: img, err: err}
	return img, err
}

// Put stores img under path without decoding. Stages use it to replace a
// source with its transformed form and to register synthetic maps.
func (c *LoadCache) Put(path string, img *imaging.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{img: img}
}

// DecodeCount returns how many times path was decoded.
func (c *LoadCache) DecodeCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodes[path]
}

// TotalDecodes returns the number of decodes across all paths.
func (c *LoadCache) TotalDecodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.decodes {
		total += n
	}
	return total
}

// Release drops every cached image. Decode counts are kept.
func (c *LoadCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
