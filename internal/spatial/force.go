package spatial

import (
	"github.com/onnwee/citation-map/internal/geom"
)

// DefaultMinDistance floors every pairwise distance in the repulsion law so
// that coincident bodies produce a large but finite push.
const DefaultMinDistance = 1e-3

// coincident is the separation below which the line between two bodies is
// treated as undefined.
const coincident = 1e-12

// Law is the inverse-square repulsion between two masses:
// |F| = Strength * m1 * m2 / d², directed along the line joining them.
type Law struct {
	Strength float64

	// CloseRepulsion floors the distance at the sum of the two radii, so
	// the push saturates once bodies overlap instead of growing without
	// bound.
	CloseRepulsion bool

	// MinDistance is the absolute distance floor; DefaultMinDistance
	// when zero.
	MinDistance float64
}

// Repel returns the force exerted on a body at p with mass mp by a mass mq at
// q. contact is the sum of the two radii (zero for pseudo-bodies) and tie is
// the direction used when p and q coincide.
func Repel[V geom.Vector[V]](law Law, p V, mp float64, q V, mq float64, contact float64, tie V) V {
	d := p.Sub(q)
	dist := d.Norm()

	var dir V
	if dist < coincident {
		dir = tie
	} else {
		dir = d.Scale(1 / dist)
	}

	floor := law.MinDistance
	if floor <= 0 {
		floor = DefaultMinDistance
	}
	if law.CloseRepulsion && contact > floor {
		floor = contact
	}
	if dist < floor {
		dist = floor
	}
	return dir.Scale(law.Strength * mp * mq / (dist * dist))
}

// tieDirection is antisymmetric in (i, j), so coincident pairs are pushed
// apart with equal and opposite forces.
func tieDirection[V geom.Vector[V]](i, j int32) V {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	dir := geom.Direction[V](uint64(uint32(lo))<<32 | uint64(uint32(hi)))
	if i > j {
		return dir.Scale(-1)
	}
	return dir
}

// Force returns the approximate repulsion on body i from every other body.
// A cell whose side length over its distance to the query falls below theta
// is treated as a single pseudo-body at its centre of mass; theta = 0 gives
// the exact sum.
func (t *Tree[V]) Force(i int, theta float64, law Law) V {
	if len(t.cells) == 0 {
		var zero V
		return zero
	}
	return t.accumulate(0, int32(i), t.bodies[i], theta, law)
}

// ForceAt returns the approximate repulsion on a probe body that is not part
// of the tree.
func (t *Tree[V]) ForceAt(probe Body[V], theta float64, law Law) V {
	if len(t.cells) == 0 {
		var zero V
		return zero
	}
	return t.accumulate(0, empty, probe, theta, law)
}

func (t *Tree[V]) accumulate(ci, self int32, probe Body[V], theta float64, law Law) V {
	c := &t.cells[ci]
	var f V

	if c.leaf {
		for k := c.start; k < c.start+c.count; k++ {
			j := t.order[k]
			if j == self {
				continue
			}
			b := t.bodies[j]
			f = f.Add(Repel(law, probe.Pos, probe.Mass, b.Pos, b.Mass, probe.Radius+b.Radius, tieDirection[V](self, j)))
		}
		return f
	}

	if c.mass == 0 {
		return f
	}

	// A cell containing the query point is never summarised: its centre
	// of mass includes the query body itself.
	if !c.contains(probe.Pos) {
		dist := geom.Dist(c.com, probe.Pos)
		if dist > 0 && 2*c.half/dist < theta {
			return Repel(law, probe.Pos, probe.Mass, c.com, c.mass, 0, geom.Direction[V](uint64(ci)))
		}
	}

	for o := 0; o < t.orthants; o++ {
		if child := c.children[o]; child != empty {
			f = f.Add(t.accumulate(child, self, probe, theta, law))
		}
	}
	return f
}

// Brute returns the exact repulsion on bodies[i] by direct summation. It is
// the O(n) per-body reference the tree approximates.
func Brute[V geom.Vector[V]](bodies []Body[V], i int, law Law) V {
	var f V
	p := bodies[i]
	for j, b := range bodies {
		if j == i {
			continue
		}
		f = f.Add(Repel(law, p.Pos, p.Mass, b.Pos, b.Mass, p.Radius+b.Radius, tieDirection[V](int32(i), int32(j))))
	}
	return f
}
