package ephemeris

import (
	"sync"
	"time"

	"sunbar/internal/model"
)

// cacheKey identifies one (observer, calendar date, zone) tuple. Solar
// events for such a tuple never change.
type cacheKey struct {
	obs  model.Observer
	date string
	zone string
}

// Cache memoizes a Provider for long-running modes (watch, HTTP) so that a
// redraw every minute does not recompute the same day. Errors are not
// cached. Safe for concurrent use.
type Cache struct {
	next Provider

	mu      sync.RWMutex
	entries map[cacheKey]model.SolarEvents
	maxSize int
}

// NewCache wraps next. maxSize bounds the number of remembered days; when it
// is exceeded the whole cache is dropped. Zero means 64.
func NewCache(next Provider, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &Cache{
		next:    next,
		entries: make(map[cacheKey]model.SolarEvents),
		maxSize: maxSize,
	}
}

// Events implements Provider.
func (c *Cache) Events(obs model.Observer, date time.Time) (model.SolarEvents, error) {
	key := cacheKey{
		obs:  obs,
		date: date.Format(time.DateOnly),
		zone: date.Location().String(),
	}

	c.mu.RLock()
	ev, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return ev, nil
	}

	ev, err := c.next.Events(obs, date)
	if err != nil {
		return model.SolarEvents{}, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[cacheKey]model.SolarEvents)
	}
	c.entries[key] = ev
	c.mu.Unlock()

	return ev, nil
}

// Len reports the number of cached days.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
