package seeding

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

// Builder produces a fresh DataCollection.
type Builder interface {
	Prepare(ctx context.Context) *DataCollection
}

// Cache serves the last prepared DataCollection until it is older than the
// TTL. Concurrent callers that find it expired share one rebuild.
type Cache struct {
	builder Builder
	ttl     time.Duration
	now     func() time.Time
	logger  *logrus.Logger

	mu      sync.RWMutex
	current *DataCollection
	builtAt time.Time

	group  singleflight.Group
	hits   atomic.Int64
	builds atomic.Int64
}

type CacheOption func(*Cache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(builder Builder, ttl time.Duration, logger *logrus.Logger, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		builder: builder,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrBuild returns the cached collection while it is fresh, otherwise
// rebuilds it. The rebuild runs detached from the caller's cancellation so
// one impatient caller cannot abort it for the rest.
func (c *Cache) GetOrBuild(ctx context.Context) *DataCollection {
	if dc, ok := c.fresh(); ok {
		c.hits.Add(1)
		c.logger.WithField("age", c.now().Sub(dc.BuiltAt).Round(time.Second).String()).Debug("Using cached data collection")
		return dc
	}

	v, _, _ := c.group.Do("collection", func() (interface{}, error) {
		if dc, ok := c.fresh(); ok {
			return dc, nil
		}
		c.logger.Info("Preparing data collection")
		dc := c.builder.Prepare(context.WithoutCancel(ctx))
		now := c.now()
		dc.BuiltAt = now
		c.builds.Add(1)

		c.mu.Lock()
		c.current = dc
		c.builtAt = now
		c.mu.Unlock()
		return dc, nil
	})
	return v.(*DataCollection)
}

func (c *Cache) fresh() (*DataCollection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || c.now().Sub(c.builtAt) >= c.ttl {
		return nil, false
	}
	return c.current, true
}

// Cached returns the last built collection regardless of age, or nil.
func (c *Cache) Cached() *DataCollection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Clear drops the cached collection; the next GetOrBuild rebuilds.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.current = nil
	c.builtAt = time.Time{}
	c.mu.Unlock()
	c.logger.Info("Data collection cache cleared")
}

type CacheStats struct {
	TTL         string         `json:"ttl"`
	Age         string         `json:"age,omitempty"`
	Fresh       bool           `json:"fresh"`
	Hits        int64          `json:"hits"`
	Builds      int64          `json:"builds"`
	Summary     map[string]int `json:"summary"`
	LastBuiltAt *time.Time     `json:"last_built_at,omitempty"`
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	current, builtAt := c.current, c.builtAt
	c.mu.RUnlock()

	s := CacheStats{
		TTL:     c.ttl.String(),
		Hits:    c.hits.Load(),
		Builds:  c.builds.Load(),
		Summary: current.Summary(),
	}
	if current != nil {
		age := c.now().Sub(builtAt)
		s.Age = age.Round(time.Second).String()
		s.Fresh = age < c.ttl
		s.LastBuiltAt = &builtAt
	}
	return s
}
