// Package store persists node positions of the finest layout, keyed by paper
// id.
package store

import (
	"context"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/layout"
)

// Record is the stored position of one paper. Z is zero for 2D maps.
type Record struct {
	ID      uint32
	X, Y, Z float64
}

// Backend is a position store.
type Backend interface {
	LoadPositions(ctx context.Context) ([]Record, error)
	SavePositions(ctx context.Context, recs []Record) error
}

// Load fills the positions of the finest layout below l from b, matching by
// paper id. Nodes without a stored position, or with a non-finite one, keep
// their current position. It returns the number of nodes placed.
func Load[V geom.Vector[V]](ctx context.Context, b Backend, l *layout.Layout[V]) (int, error) {
	return load(ctx, b, l, false)
}

// LoadFixed is Load that also pins every node it places, so only papers new
// since the last save move during the run.
func LoadFixed[V geom.Vector[V]](ctx context.Context, b Backend, l *layout.Layout[V]) (int, error) {
	return load(ctx, b, l, true)
}

func load[V geom.Vector[V]](ctx context.Context, b Backend, l *layout.Layout[V], fix bool) (int, error) {
	recs, err := b.LoadPositions(ctx)
	if err != nil {
		return 0, err
	}
	fine := layout.Finest(l)
	if fine == nil || len(recs) == 0 {
		return 0, nil
	}

	byID := make(map[uint32]Record, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	placed := 0
	for i := range fine.Nodes {
		r, ok := byID[fine.Nodes[i].ID]
		if !ok {
			continue
		}
		p := geom.FromCoords[V](r.X, r.Y, r.Z)
		if !geom.IsFinite(p) {
			continue
		}
		fine.Nodes[i].Pos = p
		if fix {
			fine.Nodes[i].Fixed = true
		}
		placed++
	}
	return placed, nil
}

// Save writes the positions of the finest layout below l to b.
func Save[V geom.Vector[V]](ctx context.Context, b Backend, l *layout.Layout[V]) error {
	return b.SavePositions(ctx, Records(l))
}

// Records converts the finest layout below l into store records.
func Records[V geom.Vector[V]](l *layout.Layout[V]) []Record {
	fine := layout.Finest(l)
	if fine == nil {
		return nil
	}
	recs := make([]Record, len(fine.Nodes))
	for i, n := range fine.Nodes {
		c := geom.Coords(n.Pos)
		recs[i] = Record{ID: n.ID, X: c[0], Y: c[1], Z: c[2]}
	}
	return recs
}
