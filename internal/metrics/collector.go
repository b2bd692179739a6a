package metrics

import (
	"context"
	"time"

	"github.com/onnwee/citation-map/internal/cache"
	"github.com/onnwee/citation-map/internal/logger"
)

// Collector periodically copies snapshot cache statistics into gauges.
type Collector struct {
	cache    cache.Cache
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(c cache.Cache, interval time.Duration) *Collector {
	return &Collector{
		cache:    c,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the collection loop until Stop is called or ctx is done.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collect() {
	if c.cache == nil {
		logger.Debug("metrics collector has no cache to observe")
		MetricsCollectionErrors.WithLabelValues("cache").Inc()
		return
	}
	s := c.cache.Stats()
	SnapshotCacheHits.Set(float64(s.Hits))
	SnapshotCacheMisses.Set(float64(s.Misses))
	SnapshotCacheBytes.Set(float64(s.Size))
}
