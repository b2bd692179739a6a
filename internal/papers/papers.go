// Package papers is the ingestion side of the map: it loads the paper set and
// the citation links between papers, validates them and computes the
// transitive-reduction flag used by the force model.
package papers

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Paper is one node of the citation graph.
type Paper struct {
	ID       uint32   `json:"id" yaml:"id"`
	NumCites int      `json:"num_cites" yaml:"num_cites"`
	Mass     float64  `json:"mass,omitempty" yaml:"mass,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Link is a citation from one paper to another.
type Link struct {
	From   uint32  `json:"from" yaml:"from"`
	To     uint32  `json:"to" yaml:"to"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`

	// Tred is set when the link survives transitive reduction, i.e. To is
	// not also reachable from From through a longer chain of citations.
	Tred bool `json:"tred,omitempty" yaml:"tred,omitempty"`
}

// Set is a validated paper graph ready for layout.
type Set struct {
	Papers []Paper
	Links  []Link
}

// Source supplies the paper graph.
type Source interface {
	Load(ctx context.Context) (*Set, error)
}

// ErrDuplicatePaper is returned when two papers share an identifier.
var ErrDuplicatePaper = errors.New("duplicate paper id")

// InvalidLinkError reports a link that cannot be placed in the graph.
type InvalidLinkError struct {
	From, To uint32
	Reason   string
}

func (e *InvalidLinkError) Error() string {
	return fmt.Sprintf("invalid link %d -> %d: %s", e.From, e.To, e.Reason)
}

// MassFromCites derives a paper's mass from its citation count. Uncited
// papers keep a small positive mass so they still repel.
func MassFromCites(numCites int) float64 {
	if numCites < 0 {
		numCites = 0
	}
	return 0.05 + 0.1*float64(numCites)
}

// RadiusFromMass is the radius of a disc whose area equals mass.
func RadiusFromMass(mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return math.Sqrt(mass / math.Pi)
}

// Normalize fills derived fields: missing masses and link weights.
func (s *Set) Normalize() {
	for i := range s.Papers {
		if s.Papers[i].Mass <= 0 {
			s.Papers[i].Mass = MassFromCites(s.Papers[i].NumCites)
		}
	}
	for i := range s.Links {
		if s.Links[i].Weight <= 0 {
			s.Links[i].Weight = 1
		}
	}
}

// Index maps paper ids to their position in s.Papers.
func (s *Set) Index() map[uint32]int {
	idx := make(map[uint32]int, len(s.Papers))
	for i, p := range s.Papers {
		idx[p.ID] = i
	}
	return idx
}

// Validate checks that ids are unique and every link joins two distinct
// known papers.
func (s *Set) Validate() error {
	idx := make(map[uint32]int, len(s.Papers))
	for i, p := range s.Papers {
		if _, dup := idx[p.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicatePaper, p.ID)
		}
		idx[p.ID] = i
	}
	for _, l := range s.Links {
		if l.From == l.To {
			return &InvalidLinkError{From: l.From, To: l.To, Reason: "self citation"}
		}
		if _, ok := idx[l.From]; !ok {
			return &InvalidLinkError{From: l.From, To: l.To, Reason: "unknown citing paper"}
		}
		if _, ok := idx[l.To]; !ok {
			return &InvalidLinkError{From: l.From, To: l.To, Reason: "unknown cited paper"}
		}
		if math.IsNaN(l.Weight) || math.IsInf(l.Weight, 0) || l.Weight < 0 {
			return &InvalidLinkError{From: l.From, To: l.To, Reason: "weight must be a finite non-negative number"}
		}
	}
	return nil
}
