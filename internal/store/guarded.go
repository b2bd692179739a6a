package store

import (
	"context"

	"github.com/onnwee/citation-map/internal/circuitbreaker"
)

// Guarded routes Backend calls through a circuit breaker. While the breaker
// is open, calls fail with circuitbreaker.ErrCircuitOpen without touching
// the backend.
type Guarded struct {
	Backend Backend
	Breaker *circuitbreaker.CircuitBreaker
}

func (g *Guarded) LoadPositions(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := g.Breaker.Call(func() error {
		var err error
		recs, err = g.Backend.LoadPositions(ctx)
		return err
	})
	return recs, err
}

func (g *Guarded) SavePositions(ctx context.Context, recs []Record) error {
	return g.Breaker.Call(func() error {
		return g.Backend.SavePositions(ctx, recs)
	})
}
