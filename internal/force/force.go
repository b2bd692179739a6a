// Package force computes the net force on every node of a layout level:
// Barnes-Hut repulsion from a spatial tree plus spring attraction along the
// level's links.
package force

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/layout"
	"github.com/onnwee/citation-map/internal/spatial"
)

// Params is the force configuration shared by every pass of a run.
type Params struct {
	DoCloseRepulsion bool
	UseRefFreq       bool

	// AntiGravity scales the inverse-square repulsion.
	AntiGravity float64

	// LinkStrength scales the Hooke attraction along links.
	LinkStrength float64

	// Theta is the opening-angle threshold of the tree traversal.
	Theta float64

	// TransitiveReduction restricts attraction to links that survive
	// transitive reduction.
	TransitiveReduction bool

	// Workers bounds the goroutines used for repulsion;
	// runtime.GOMAXPROCS(0) when zero.
	Workers int
}

// DefaultParams mirrors the settings the map is normally built with.
var DefaultParams = Params{
	DoCloseRepulsion: false,
	UseRefFreq:       true,
	AntiGravity:      0.5,
	LinkStrength:     1.1,
	Theta:            0.8,
}

// chunk is the number of nodes handed to a worker at a time.
const chunk = 256

// Law returns the repulsion law for p.
func (p Params) Law() spatial.Law {
	return spatial.Law{Strength: p.AntiGravity, CloseRepulsion: p.DoCloseRepulsion}
}

// Bodies snapshots the nodes of l for tree construction.
func Bodies[V geom.Vector[V]](l *layout.Layout[V]) []spatial.Body[V] {
	bodies := make([]spatial.Body[V], len(l.Nodes))
	for i, n := range l.Nodes {
		bodies[i] = spatial.Body[V]{Pos: n.Pos, Mass: n.Mass, Radius: n.Radius}
	}
	return bodies
}

// Pass builds a fresh tree from the current positions of l and computes the
// forces against it.
func Pass[V geom.Vector[V]](ctx context.Context, l *layout.Layout[V], p Params) ([]V, error) {
	tree := spatial.Build(Bodies(l))
	return Compute(ctx, l, tree, p)
}

// Compute returns the net force on every node of l: repulsion queried from
// tree, which must have been built from l's nodes in order, plus attraction
// along l's links. Node positions are not touched. The result is also stored
// in each node's Force field.
//
// Repulsion is computed in parallel; Compute returns only after every
// worker has finished, so the caller can move nodes safely afterwards.
func Compute[V geom.Vector[V]](ctx context.Context, l *layout.Layout[V], tree *spatial.Tree[V], p Params) ([]V, error) {
	forces, err := Repulsion(ctx, l, tree, p)
	if err != nil {
		return nil, err
	}
	Attraction(l, p, forces)
	for i := range l.Nodes {
		l.Nodes[i].Force = forces[i]
	}
	return forces, nil
}

// Repulsion returns the tree-approximated repulsion on every node.
func Repulsion[V geom.Vector[V]](ctx context.Context, l *layout.Layout[V], tree *spatial.Tree[V], p Params) ([]V, error) {
	n := len(l.Nodes)
	forces := make([]V, n)
	if n == 0 {
		return forces, nil
	}

	law := p.Law()
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				forces[i] = tree.Force(i, p.Theta, law)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forces, nil
}

// Attraction adds the spring force of every link to forces. The pull on each
// end is LinkStrength * Weight * (other - self), scaled by RefFreqFactor when
// UseRefFreq is set.
func Attraction[V geom.Vector[V]](l *layout.Layout[V], p Params, forces []V) {
	for _, lk := range l.Links {
		if p.TransitiveReduction && !lk.Reduced {
			continue
		}
		if lk.Source == lk.Target {
			continue
		}
		a, b := &l.Nodes[lk.Source], &l.Nodes[lk.Target]

		k := p.LinkStrength * lk.Weight
		if p.UseRefFreq {
			k *= RefFreqFactor(a.RefFreq, b.RefFreq)
		}
		f := b.Pos.Sub(a.Pos).Scale(k)
		forces[lk.Source] = forces[lk.Source].Add(f)
		forces[lk.Target] = forces[lk.Target].Sub(f)
	}
}

// RefFreqFactor down-weights links between nodes of very different citation
// frequency: min(a,b)/max(a,b), or 1 when either is not positive.
func RefFreqFactor(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	return a / b
}

// Energy is the sum of squared force magnitudes, used to steer the step size.
func Energy[V geom.Vector[V]](forces []V) float64 {
	e := 0.0
	for _, f := range forces {
		e += f.Dot(f)
	}
	return e
}
