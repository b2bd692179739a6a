package store

import (
	"context"

	"github.com/onnwee/citation-map/internal/cache"
	"github.com/onnwee/citation-map/internal/logger"
)

// Cached fronts a Backend with a snapshot cache. Loads are served from the
// cache when possible. Saves go to the backend and invalidate the snapshot,
// since the backend merges rather than replaces.
type Cached struct {
	Backend Backend
	Cache   cache.Cache
	Key     string
}

func (c *Cached) LoadPositions(ctx context.Context) ([]Record, error) {
	if blob, ok := c.Cache.Get(c.Key); ok {
		recs, err := DecodeSnapshot(blob)
		if err == nil {
			return recs, nil
		}
		logger.Warn("dropping unreadable cached snapshot", "key", c.Key, "error", err)
		c.Cache.Delete(c.Key)
	}

	recs, err := c.Backend.LoadPositions(ctx)
	if err != nil {
		return nil, err
	}
	c.fill(recs)
	return recs, nil
}

func (c *Cached) SavePositions(ctx context.Context, recs []Record) error {
	err := c.Backend.SavePositions(ctx, recs)
	c.Cache.Delete(c.Key)
	return err
}

func (c *Cached) fill(recs []Record) {
	blob, err := EncodeSnapshot(recs)
	if err != nil {
		logger.Warn("failed to encode position snapshot", "key", c.Key, "error", err)
		return
	}
	c.Cache.Set(c.Key, blob, 0)
}
