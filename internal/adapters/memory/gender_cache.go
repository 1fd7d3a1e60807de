package memory

import "sync"

// GenderCache lives as long as the process; entries are never evicted.
type GenderCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewGenderCache() *GenderCache {
	return &GenderCache{m: map[string]string{}}
}

func (c *GenderCache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.m[name]
	return g, ok
}

func (c *GenderCache) Set(name, gender string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[name]; !ok {
		c.m[name] = gender
	}
}

func (c *GenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
