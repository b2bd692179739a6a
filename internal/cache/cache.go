// Package cache keeps recently loaded layout snapshots in memory so repeated
// runs against the same position store skip the database round trip.
package cache

import (
	"strconv"
	"strings"
	"time"
)

// Cache stores opaque snapshot blobs by key.
type Cache interface {
	// Get returns the blob for key if present and not expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A ttl of 0 uses the cache default.
	Set(key string, value []byte, ttl time.Duration)

	Delete(key string)
	Clear()
	Stats() Stats
}

// Stats are cumulative counters plus the current footprint.
type Stats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
	Size      int64 // approximate bytes held
	Items     int64
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// SnapshotKey names the cached position snapshot of a store table for a
// given dimensionality.
func SnapshotKey(table string, dim int) string {
	return strings.Join([]string{"positions", table, strconv.Itoa(dim)}, ":")
}
