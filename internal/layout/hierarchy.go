package layout

import (
	"math/rand/v2"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/papers"
)

// Options controls when coarsening stops.
type Options struct {
	// MinNodes stops coarsening once a level has at most this many nodes.
	MinNodes int

	// MinReduction is the fraction by which a round must shrink the node
	// count to be kept. A round that merges less is discarded and ends the
	// build.
	MinReduction float64

	// MaxLevels caps the total number of levels, finest included. Zero
	// means no cap.
	MaxLevels int
}

// DefaultOptions are used for zero fields of Options.
var DefaultOptions = Options{
	MinNodes:     16,
	MinReduction: 0.05,
	MaxLevels:    32,
}

func (o Options) withDefaults() Options {
	if o.MinNodes <= 0 {
		o.MinNodes = DefaultOptions.MinNodes
	}
	if o.MinReduction <= 0 {
		o.MinReduction = DefaultOptions.MinReduction
	}
	return o
}

// BuildHierarchy builds the finest layout from set and coarsens it until the
// top level is small enough to lay out directly. It returns the coarsest
// layout; its Level equals the number of coarsening rounds performed. A nil
// coarsener means HeavyEdge.
func BuildHierarchy[V geom.Vector[V]](set *papers.Set, opts Options, c Coarsener[V]) (*Layout[V], error) {
	fine, err := NewFinest[V](set)
	if err != nil {
		return nil, err
	}
	return Coarsen(fine, opts, c), nil
}

// Coarsen repeatedly coarsens l and returns the new top of the chain.
func Coarsen[V geom.Vector[V]](l *Layout[V], opts Options, c Coarsener[V]) *Layout[V] {
	opts = opts.withDefaults()
	if c == nil {
		c = HeavyEdge[V]{}
	}

	top := l
	for len(top.Nodes) > opts.MinNodes {
		if opts.MaxLevels > 0 && top.Level+1 >= opts.MaxLevels {
			break
		}
		next := c.Coarsen(top)
		n, m := len(top.Nodes), len(next.Nodes)
		if m == 0 || float64(n-m) < opts.MinReduction*float64(n) {
			for i := range top.Nodes {
				top.Nodes[i].Parent = -1
			}
			break
		}
		next.Child = top
		next.Level = top.Level + 1
		top = next
	}
	return top
}

// Randomize places every movable node of l uniformly in [0, extent) on each
// axis.
func Randomize[V geom.Vector[V]](l *Layout[V], rng *rand.Rand, extent float64) {
	dims := geom.Dims[V]()
	for i := range l.Nodes {
		if l.Nodes[i].Fixed {
			continue
		}
		var p V
		for axis := 0; axis < dims; axis++ {
			p = p.WithCoord(axis, rng.Float64()*extent)
		}
		l.Nodes[i].Pos = p
	}
}

// PropagateDown seeds every movable node of child with the position of its
// aggregate in parent, offset by a random vector of length up to jitter times
// the aggregate's radius so merged siblings do not start on top of each
// other.
func PropagateDown[V geom.Vector[V]](parent, child *Layout[V], rng *rand.Rand, jitter float64) {
	dims := geom.Dims[V]()
	for i := range child.Nodes {
		n := &child.Nodes[i]
		if n.Fixed || n.Parent < 0 || n.Parent >= len(parent.Nodes) {
			continue
		}
		p := parent.Nodes[n.Parent]
		pos := p.Pos
		if jitter > 0 && rng != nil {
			var d V
			for axis := 0; axis < dims; axis++ {
				d = d.WithCoord(axis, 2*rng.Float64()-1)
			}
			if norm := d.Norm(); norm > 1 {
				d = d.Scale(1 / norm)
			}
			pos = pos.Add(d.Scale(jitter * p.Radius))
		}
		n.Pos = pos
	}
}

// PropagateUp sets each aggregate in parent to the mass-weighted centroid of
// its members in child. It is used after loading stored positions into the
// finest level so the coarse levels start from the stored map.
func PropagateUp[V geom.Vector[V]](child, parent *Layout[V]) {
	weighted := make([]V, len(parent.Nodes))
	plain := make([]V, len(parent.Nodes))
	mass := make([]float64, len(parent.Nodes))
	count := make([]int, len(parent.Nodes))

	for _, n := range child.Nodes {
		if n.Parent < 0 || n.Parent >= len(parent.Nodes) {
			continue
		}
		weighted[n.Parent] = weighted[n.Parent].Add(n.Pos.Scale(n.Mass))
		plain[n.Parent] = plain[n.Parent].Add(n.Pos)
		mass[n.Parent] += n.Mass
		count[n.Parent]++
	}
	for i := range parent.Nodes {
		switch {
		case mass[i] > 0:
			parent.Nodes[i].Pos = weighted[i].Scale(1 / mass[i])
		case count[i] > 0:
			parent.Nodes[i].Pos = plain[i].Scale(1 / float64(count[i]))
		}
	}
}

// PropagateUpAll runs PropagateUp from the finest level to the top of the
// chain starting at l.
func PropagateUpAll[V geom.Vector[V]](l *Layout[V]) {
	var chain []*Layout[V]
	for cur := l; cur != nil; cur = cur.Child {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i > 0; i-- {
		PropagateUp(chain[i], chain[i-1])
	}
}
