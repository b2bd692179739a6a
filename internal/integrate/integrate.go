// Package integrate advances node positions and decides when a layout level
// has converged.
package integrate

import (
	"math"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/layout"
)

// Step moves every movable node of l by stepSize * force (explicit Euler).
// When maxDisp is positive the displacement of each node is clamped to that
// length. Nodes whose displacement is not finite stay put. It returns the
// largest displacement applied and the number of nodes left in place for a
// non-finite force.
func Step[V geom.Vector[V]](l *layout.Layout[V], forces []V, stepSize, maxDisp float64) (moved float64, nonFinite int) {
	for i := range l.Nodes {
		n := &l.Nodes[i]
		if n.Fixed {
			continue
		}
		d := forces[i].Scale(stepSize)
		dist := d.Norm()
		if math.IsNaN(dist) || math.IsInf(dist, 0) {
			nonFinite++
			continue
		}
		if maxDisp > 0 && dist > maxDisp {
			d = d.Scale(maxDisp / dist)
			dist = maxDisp
		}
		n.Pos = n.Pos.Add(d)
		if dist > moved {
			moved = dist
		}
	}
	return moved, nonFinite
}
