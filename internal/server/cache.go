package server

import (
	"sync"

	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

// regionCache keeps recently served encoded regions in memory, evicting
// the oldest entries once the byte budget is exceeded. A zero budget
// disables it.
type regionCache struct {
	mu     sync.RWMutex
	budget int
	size   int
	data   map[region.Pos][]byte
	order  []region.Pos
}

func newRegionCache(budget int) *regionCache {
	return &regionCache{budget: budget, data: make(map[region.Pos][]byte)}
}

func (c *regionCache) get(pos region.Pos) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[pos]
	return b, ok
}

// put stores b unless pos is already cached, and returns the cached bytes.
func (c *regionCache) put(pos region.Pos, b []byte) []byte {
	if len(b) > c.budget {
		return b
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Double-check after acquiring write lock.
	if existing, ok := c.data[pos]; ok {
		return existing
	}
	for c.size+len(b) > c.budget && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.size -= len(c.data[oldest])
		delete(c.data, oldest)
	}
	c.data[pos] = b
	c.order = append(c.order, pos)
	c.size += len(b)
	return b
}

func (c *regionCache) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
