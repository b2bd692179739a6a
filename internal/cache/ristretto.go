package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto is a size-bounded cache backed by ristretto. Entry cost is the
// blob length in bytes.
type Ristretto struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

// NewRistretto creates a cache holding at most maxSizeMB megabytes in
// roughly maxEntries snapshots.
func NewRistretto(maxSizeMB, maxEntries int64, defaultTTL time.Duration) (*Ristretto, error) {
	// ristretto wants ~10 counters per expected entry
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{cache: c, defaultTTL: defaultTTL}, nil
}

func (r *Ristretto) Get(key string) ([]byte, bool) {
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		r.cache.Del(key)
		return nil, false
	}
	return b, true
}

func (r *Ristretto) Set(key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	// A rejected Set is fine: the next load simply misses.
	_ = r.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	r.cache.Wait()
}

func (r *Ristretto) Delete(key string) { r.cache.Del(key) }

func (r *Ristretto) Clear() { r.cache.Clear() }

func (r *Ristretto) Stats() Stats {
	m := r.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close stops ristretto's background goroutines.
func (r *Ristretto) Close() { r.cache.Close() }
