package entity

// cache holds computed property results. Every drop bumps the name's
// generation, so a getter that invalidates its own inputs while running
// can tell its result is already stale.
type cache struct {
	entries     map[string]any
	generations map[string]uint64
}

func newCache() *cache {
	return &cache{
		entries:     make(map[string]any),
		generations: make(map[string]uint64),
	}
}

func (c *cache) lookup(name string) (any, bool) {
	v, ok := c.entries[name]
	return v, ok
}

func (c *cache) store(name string, value any) {
	c.entries[name] = value
}

func (c *cache) generation(name string) uint64 {
	return c.generations[name]
}

// drop removes the entry and reports whether one was held
func (c *cache) drop(name string) bool {
	c.generations[name]++
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	return true
}

// names lists the cached property names
func (c *cache) names() []string {
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	return out
}

func (c *cache) len() int {
	return len(c.entries)
}
