package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/citation-map/internal/cache"
)

func TestCollectorCopiesCacheStats(t *testing.T) {
	c := cache.NewMemory()
	c.Set("k", []byte("12345"), 0)
	c.Get("k")
	c.Get("missing")

	NewCollector(c, time.Minute).collect()

	if got := testutil.ToFloat64(SnapshotCacheHits); got != 1 {
		t.Errorf("hits gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SnapshotCacheMisses); got != 1 {
		t.Errorf("misses gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SnapshotCacheBytes); got != 5 {
		t.Errorf("bytes gauge = %v, want 5", got)
	}
}

func TestCollectorWithoutCacheCountsError(t *testing.T) {
	before := testutil.ToFloat64(MetricsCollectionErrors.WithLabelValues("cache"))
	NewCollector(nil, time.Minute).collect()
	if got := testutil.ToFloat64(MetricsCollectionErrors.WithLabelValues("cache")); got != before+1 {
		t.Errorf("error counter = %v, want %v", got, before+1)
	}
}

func TestCollectorStops(t *testing.T) {
	col := NewCollector(cache.NewMemory(), 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		col.Start(context.Background())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	col.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestCollectorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	col := NewCollector(cache.NewMemory(), time.Hour)
	done := make(chan struct{})
	go func() {
		col.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector ignored context cancellation")
	}
}
