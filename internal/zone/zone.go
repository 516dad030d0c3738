// Package zone caches *time.Location lookups for user timezones.
package zone

import (
	"fmt"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database

	lru "github.com/hashicorp/golang-lru/v2"
)

type Cache struct {
	locs *lru.Cache[string, *time.Location]
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, *time.Location](size) // only fails for size <= 0
	return &Cache{locs: c}
}

// Load resolves an IANA zone name, remembering successful lookups.
func (c *Cache) Load(name string) (*time.Location, error) {
	if loc, ok := c.locs.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	c.locs.Add(name, loc)
	return loc, nil
}
