package layout

import (
	"cmp"
	"slices"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/papers"
)

// Coarsener merges the nodes of a layout into a smaller one. It sets Parent
// on every fine node to the index of its aggregate in the returned layout.
type Coarsener[V geom.Vector[V]] interface {
	Coarsen(fine *Layout[V]) *Layout[V]
}

// HeavyEdge is a matching coarsener. Nodes are visited in ascending mass
// and each unmatched node is merged with the unmatched neighbour it shares the
// heaviest total link weight with (ties go to the lighter neighbour). Nodes
// without any links are paired with each other in visiting order. A linked
// node whose neighbours are all taken waits for another such node hanging
// off the same matched pair (the leaves of a hub pair up this way); nodes
// still waiting at the end are paired in visiting order, and an odd one out
// is carried over alone.
//
// An aggregate's mass and ref frequency are the sums over its members, its
// position their mass-weighted centroid and its ID that of its heaviest
// member. Links between aggregates sum the member weights; links inside an
// aggregate disappear.
type HeavyEdge[V geom.Vector[V]] struct{}

type adjEdge struct {
	to     int
	weight float64
}

func (HeavyEdge[V]) Coarsen(fine *Layout[V]) *Layout[V] {
	n := len(fine.Nodes)
	adj := make([][]adjEdge, n)
	for _, lk := range fine.Links {
		if lk.Source == lk.Target {
			continue
		}
		adj[lk.Source] = append(adj[lk.Source], adjEdge{lk.Target, lk.Weight})
		adj[lk.Target] = append(adj[lk.Target], adjEdge{lk.Source, lk.Weight})
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(fine.Nodes[a].Mass, fine.Nodes[b].Mass)
	})

	match := make([]int, n)
	for i := range match {
		match[i] = -1
	}

	// acc sums parallel links per neighbour; touched lists the entries to
	// reset afterwards.
	acc := make([]float64, n)
	var touched []int
	isolated := -1

	// waiting[k] is a node whose neighbours were all matched, keyed by the
	// lower index of its heaviest neighbour's pair.
	waiting := make(map[int]int)

	for _, i := range order {
		if match[i] >= 0 {
			continue
		}
		if len(adj[i]) == 0 {
			if isolated >= 0 {
				match[i], match[isolated] = isolated, i
				isolated = -1
			} else {
				isolated = i
			}
			continue
		}

		touched = touched[:0]
		anchor, anchorWeight := -1, 0.0
		for _, e := range adj[i] {
			if match[e.to] >= 0 {
				if e.weight > anchorWeight || anchor < 0 {
					anchor, anchorWeight = e.to, e.weight
				}
				continue
			}
			if acc[e.to] == 0 {
				touched = append(touched, e.to)
			}
			acc[e.to] += e.weight
		}
		best := -1
		for _, j := range touched {
			if best < 0 || acc[j] > acc[best] ||
				(acc[j] == acc[best] && fine.Nodes[j].Mass < fine.Nodes[best].Mass) ||
				(acc[j] == acc[best] && fine.Nodes[j].Mass == fine.Nodes[best].Mass && j < best) {
				best = j
			}
		}
		for _, j := range touched {
			acc[j] = 0
		}
		if best >= 0 {
			match[i], match[best] = best, i
			continue
		}
		key := min(anchor, match[anchor])
		if j, ok := waiting[key]; ok && match[j] < 0 {
			match[i], match[j] = j, i
			delete(waiting, key)
		} else {
			waiting[key] = i
		}
	}

	// pair the nodes left waiting, and a leftover isolated node, in visiting
	// order
	pending := isolated
	for _, i := range order {
		if match[i] >= 0 {
			continue
		}
		if pending >= 0 && pending != i {
			match[i], match[pending] = pending, i
			pending = -1
		} else {
			pending = i
		}
	}
	if pending >= 0 {
		match[pending] = pending
	}

	return aggregate(fine, match)
}

// aggregate builds the coarse layout from a matching, where match[i] is the
// partner of node i (itself when unmatched).
func aggregate[V geom.Vector[V]](fine *Layout[V], match []int) *Layout[V] {
	coarse := &Layout[V]{Child: fine, Level: fine.Level + 1}

	for i := range fine.Nodes {
		j := match[i]
		if j < i {
			continue
		}
		members := []int{i}
		if j != i {
			members = append(members, j)
		}
		ci := len(coarse.Nodes)

		var (
			agg      Node[V]
			weighted V
			plain    V
			heaviest = -1
			fixed    = true
		)
		for _, m := range members {
			fn := &fine.Nodes[m]
			fn.Parent = ci
			agg.Mass += fn.Mass
			agg.RefFreq += fn.RefFreq
			weighted = weighted.Add(fn.Pos.Scale(fn.Mass))
			plain = plain.Add(fn.Pos)
			if heaviest < 0 || fn.Mass > fine.Nodes[heaviest].Mass {
				heaviest = m
			}
			fixed = fixed && fn.Fixed
		}
		agg.ID = fine.Nodes[heaviest].ID
		agg.Radius = papers.RadiusFromMass(agg.Mass)
		agg.Parent = -1
		agg.Fixed = fixed
		if agg.Mass > 0 {
			agg.Pos = weighted.Scale(1 / agg.Mass)
		} else {
			agg.Pos = plain.Scale(1 / float64(len(members)))
		}
		coarse.Nodes = append(coarse.Nodes, agg)
	}

	type key struct{ a, b int }
	seen := make(map[key]int)
	for _, lk := range fine.Links {
		a, b := fine.Nodes[lk.Source].Parent, fine.Nodes[lk.Target].Parent
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		k := key{a, b}
		if li, ok := seen[k]; ok {
			coarse.Links[li].Weight += lk.Weight
			coarse.Links[li].Reduced = coarse.Links[li].Reduced || lk.Reduced
			continue
		}
		seen[k] = len(coarse.Links)
		coarse.Links = append(coarse.Links, Link{Source: a, Target: b, Weight: lk.Weight, Reduced: lk.Reduced})
	}
	return coarse
}
