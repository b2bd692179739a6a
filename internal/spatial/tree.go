// Package spatial implements the Barnes-Hut spatial tree used to approximate
// pairwise repulsion: a quadtree for 2D layouts and an octree for 3D ones,
// sharing one implementation over geom.Vector.
package spatial

import (
	"math"

	"github.com/onnwee/citation-map/internal/geom"
)

// Body is a point mass inserted into a Tree.
type Body[V geom.Vector[V]] struct {
	Pos    V
	Mass   float64
	Radius float64
}

const (
	// empty marks an absent child in a cell's child table.
	empty int32 = -1

	// maxDepth bounds subdivision. Bodies that still share a cell at this
	// depth (coincident or nearly so) are kept together in one leaf.
	maxDepth = 48

	// padding widens the root region on every side, as a fraction of the
	// largest extent of the point set.
	padding = 0.1
)

// cell is one square (2D) or cube (3D) region of the tree. Cells live in the
// Tree's arena and refer to each other by index.
type cell[V geom.Vector[V]] struct {
	center V
	half   float64

	// aggregate over the subtree
	mass float64
	com  V
	size int32

	// leaf bodies are order[start : start+count]
	leaf  bool
	start int32
	count int32

	children [8]int32
}

// Tree is a Barnes-Hut tree over a snapshot of bodies. It is immutable once
// built, so concurrent Force queries are safe.
type Tree[V geom.Vector[V]] struct {
	bodies   []Body[V]
	cells    []cell[V]
	order    []int32
	orthants int
	depth    int

	// scratch space used only while building
	scratch []int32
	orth    []uint8
}

// Build constructs a tree covering every body. The bodies are copied, so the
// caller may keep mutating its own slice afterwards.
func Build[V geom.Vector[V]](bodies []Body[V]) *Tree[V] {
	t := &Tree[V]{
		bodies:   append([]Body[V](nil), bodies...),
		orthants: geom.Orthants[V](),
	}
	n := len(t.bodies)
	if n == 0 {
		return t
	}

	t.order = make([]int32, n)
	for i := range t.order {
		t.order[i] = int32(i)
	}
	t.scratch = make([]int32, n)
	t.orth = make([]uint8, n)
	t.cells = make([]cell[V], 0, 2*n)

	center, half := bounds(t.bodies)
	t.build(0, int32(n), center, half, 0)

	t.scratch, t.orth = nil, nil
	return t
}

// bounds returns a padded square/cube region containing all bodies.
func bounds[V geom.Vector[V]](bodies []Body[V]) (V, float64) {
	lo, hi := bodies[0].Pos, bodies[0].Pos
	dims := lo.Dims()
	for _, b := range bodies[1:] {
		for axis := 0; axis < dims; axis++ {
			c := b.Pos.Coord(axis)
			if c < lo.Coord(axis) {
				lo = lo.WithCoord(axis, c)
			}
			if c > hi.Coord(axis) {
				hi = hi.WithCoord(axis, c)
			}
		}
	}

	extent := 0.0
	for axis := 0; axis < dims; axis++ {
		extent = math.Max(extent, hi.Coord(axis)-lo.Coord(axis))
	}
	if extent == 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = 1
	}

	center := lo.Add(hi).Scale(0.5)
	half := extent * (1 + 2*padding) / 2
	return center, half
}

// build creates the cell for order[lo:hi] and returns its arena index.
func (t *Tree[V]) build(lo, hi int32, center V, half float64, depth int) int32 {
	idx := int32(len(t.cells))
	t.cells = append(t.cells, cell[V]{center: center, half: half, children: noChildren()})
	if depth > t.depth {
		t.depth = depth
	}

	n := hi - lo
	if n <= 1 || depth >= maxDepth {
		t.makeLeaf(idx, lo, hi)
		return idx
	}

	// Counting sort of order[lo:hi] by orthant, so each child owns a
	// contiguous range.
	var counts [8]int32
	for k := lo; k < hi; k++ {
		o := t.bodies[t.order[k]].Pos.Orthant(center)
		t.orth[k] = uint8(o)
		counts[o]++
	}
	var offs [9]int32
	offs[0] = lo
	for o := 0; o < 8; o++ {
		offs[o+1] = offs[o] + counts[o]
	}
	var next [8]int32
	copy(next[:], offs[:8])
	for k := lo; k < hi; k++ {
		o := t.orth[k]
		t.scratch[next[o]] = t.order[k]
		next[o]++
	}
	copy(t.order[lo:hi], t.scratch[lo:hi])

	childHalf := half / 2
	var (
		mass     float64
		weighted V
		plain    V
	)
	for o := 0; o < t.orthants; o++ {
		if offs[o+1] == offs[o] {
			continue
		}
		child := t.build(offs[o], offs[o+1], center.OrthantCenter(o, childHalf), childHalf, depth+1)
		t.cells[idx].children[o] = child

		cc := &t.cells[child]
		mass += cc.mass
		weighted = weighted.Add(cc.com.Scale(cc.mass))
		plain = plain.Add(cc.com.Scale(float64(cc.size)))
	}

	c := &t.cells[idx]
	c.size = n
	c.mass = mass
	c.com = centroid(weighted, mass, plain, n)
	return idx
}

func (t *Tree[V]) makeLeaf(idx, lo, hi int32) {
	var (
		mass     float64
		weighted V
		plain    V
	)
	for k := lo; k < hi; k++ {
		b := t.bodies[t.order[k]]
		mass += b.Mass
		weighted = weighted.Add(b.Pos.Scale(b.Mass))
		plain = plain.Add(b.Pos)
	}
	c := &t.cells[idx]
	c.leaf = true
	c.start = lo
	c.count = hi - lo
	c.size = hi - lo
	c.mass = mass
	c.com = centroid(weighted, mass, plain, hi-lo)
}

// centroid is the mass-weighted centre, falling back to the plain mean for
// massless groups.
func centroid[V geom.Vector[V]](weighted V, mass float64, plain V, n int32) V {
	if mass > 0 {
		return weighted.Scale(1 / mass)
	}
	if n > 0 {
		return plain.Scale(1 / float64(n))
	}
	return plain
}

func noChildren() [8]int32 {
	return [8]int32{empty, empty, empty, empty, empty, empty, empty, empty}
}

func (c *cell[V]) contains(p V) bool {
	for axis := 0; axis < p.Dims(); axis++ {
		if math.Abs(p.Coord(axis)-c.center.Coord(axis)) > c.half {
			return false
		}
	}
	return true
}

// Len returns the number of bodies in the tree.
func (t *Tree[V]) Len() int { return len(t.bodies) }

// Cells returns the number of allocated cells.
func (t *Tree[V]) Cells() int { return len(t.cells) }

// Depth returns the deepest level reached during subdivision (root = 0).
func (t *Tree[V]) Depth() int { return t.depth }

// Mass returns the total mass aggregated at the root.
func (t *Tree[V]) Mass() float64 {
	if len(t.cells) == 0 {
		return 0
	}
	return t.cells[0].mass
}

// Centroid returns the root's centre of mass.
func (t *Tree[V]) Centroid() V {
	if len(t.cells) == 0 {
		var zero V
		return zero
	}
	return t.cells[0].com
}

// Bounds returns the root region's centre and half side length.
func (t *Tree[V]) Bounds() (V, float64) {
	if len(t.cells) == 0 {
		var zero V
		return zero, 0
	}
	return t.cells[0].center, t.cells[0].half
}
