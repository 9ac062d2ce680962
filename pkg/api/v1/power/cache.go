package power

import "sync"

// Cache holds the last published Reading. The zero Cache returns the
// zero Reading until the first Set.
type Cache struct {
	data Reading
	sync.RWMutex
}

func (c *Cache) Get() Reading {
	c.RLock()
	defer c.RUnlock()
	return c.data
}

func (c *Cache) Set(d Reading) {
	c.Lock()
	c.data = d
	c.Unlock()
}
