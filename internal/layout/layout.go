// Package layout holds the multiresolution layout hierarchy: a chain of
// layouts from a coarse one with few aggregate nodes down to the finest one
// with one node per paper.
package layout

import (
	"errors"
	"fmt"

	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/papers"
)

// ErrEmptyGraph is returned when a hierarchy is requested for zero papers.
var ErrEmptyGraph = errors.New("layout: empty graph")

// Node is one body of a layout level. At the finest level it is a paper; at
// coarser levels it aggregates the nodes whose Parent points at it.
type Node[V geom.Vector[V]] struct {
	ID      uint32
	Pos     V
	Force   V
	Mass    float64
	Radius  float64
	RefFreq float64

	// Parent is the index of the aggregate node in the next coarser level,
	// or -1 at the coarsest level.
	Parent int

	// Fixed nodes are never moved by the integrator or by propagation.
	Fixed bool
}

// Link joins two nodes of the same level.
type Link struct {
	Source, Target int
	Weight         float64

	// Reduced is set when the link survives transitive reduction.
	Reduced bool
}

// Layout is one level of the hierarchy. Child is the next finer level and is
// owned exclusively by this layout; it is nil at the finest level.
type Layout[V geom.Vector[V]] struct {
	Nodes []Node[V]
	Links []Link
	Child *Layout[V]

	// Level counts coarsening rounds: 0 is the finest layout.
	Level int
}

// Dim returns 2 or 3.
func (l *Layout[V]) Dim() int { return geom.Dims[V]() }

// NewFinest builds the finest layout, one node per paper, with positions left
// at the origin.
func NewFinest[V geom.Vector[V]](set *papers.Set) (*Layout[V], error) {
	if set == nil || len(set.Papers) == 0 {
		return nil, ErrEmptyGraph
	}

	l := &Layout[V]{Nodes: make([]Node[V], len(set.Papers))}
	for i, p := range set.Papers {
		mass := p.Mass
		if mass <= 0 {
			mass = papers.MassFromCites(p.NumCites)
		}
		l.Nodes[i] = Node[V]{
			ID:      p.ID,
			Mass:    mass,
			Radius:  papers.RadiusFromMass(mass),
			RefFreq: float64(p.NumCites) + 1,
			Parent:  -1,
		}
	}

	idx := set.Index()
	l.Links = make([]Link, 0, len(set.Links))
	for _, pl := range set.Links {
		src, ok1 := idx[pl.From]
		dst, ok2 := idx[pl.To]
		if !ok1 || !ok2 {
			return nil, &papers.InvalidLinkError{From: pl.From, To: pl.To, Reason: "unknown endpoint"}
		}
		if src == dst {
			continue
		}
		w := pl.Weight
		if w <= 0 {
			w = 1
		}
		l.Links = append(l.Links, Link{Source: src, Target: dst, Weight: w, Reduced: pl.Tred})
	}
	return l, nil
}

// Finest follows Child links to the finest layout.
func Finest[V geom.Vector[V]](l *Layout[V]) *Layout[V] {
	for l != nil && l.Child != nil {
		l = l.Child
	}
	return l
}

// Levels returns the number of layouts in the chain starting at l.
func Levels[V geom.Vector[V]](l *Layout[V]) int {
	n := 0
	for ; l != nil; l = l.Child {
		n++
	}
	return n
}

// Validate checks the structural invariants of the chain starting at l: each
// child is exactly one level finer, the chain ends at level 0, parent indices
// point into the coarser level and link endpoints into their own level.
func Validate[V geom.Vector[V]](l *Layout[V]) error {
	if l == nil {
		return ErrEmptyGraph
	}
	seen := make(map[*Layout[V]]bool)
	for cur := l; cur != nil; cur = cur.Child {
		if seen[cur] {
			return fmt.Errorf("layout: cycle at level %d", cur.Level)
		}
		seen[cur] = true

		n := len(cur.Nodes)
		for i, lk := range cur.Links {
			if lk.Source < 0 || lk.Source >= n || lk.Target < 0 || lk.Target >= n {
				return fmt.Errorf("layout: level %d link %d out of range", cur.Level, i)
			}
		}
		if cur.Child == nil {
			if cur.Level != 0 {
				return fmt.Errorf("layout: chain ends at level %d, want 0", cur.Level)
			}
			continue
		}
		if cur.Child.Level != cur.Level-1 {
			return fmt.Errorf("layout: level %d has child at level %d", cur.Level, cur.Child.Level)
		}
		for i, cn := range cur.Child.Nodes {
			if cn.Parent < 0 || cn.Parent >= n {
				return fmt.Errorf("layout: level %d node %d has parent %d outside [0,%d)", cur.Child.Level, i, cn.Parent, n)
			}
		}
	}
	return nil
}
