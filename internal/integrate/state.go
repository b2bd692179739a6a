package integrate

// State is the convergence state of one layout level.
type State int

const (
	Initializing State = iota
	Iterating
	Converged
	Exhausted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Terminal reports whether the level is finished.
func (s State) Terminal() bool { return s == Converged || s == Exhausted }

// Limits ends the iteration of a level.
type Limits struct {
	// Tolerance is the largest per-node displacement still counted as
	// movement.
	Tolerance float64

	// MaxIterations is the iteration ceiling.
	MaxIterations int
}

// Observation is what one iteration reports to the state machine.
type Observation struct {
	// Iteration is the number of completed steps, starting at 1.
	Iteration       int
	MaxDisplacement float64

	// NonFinite counts nodes that could not move because their force was
	// NaN or infinite.
	NonFinite int
}

// Next is the transition function. From Initializing the level always starts
// iterating; while iterating, a displacement below tolerance converges the
// level and reaching the iteration ceiling exhausts it. An iteration with
// non-finite forces never converges. Terminal states are absorbing.
func Next(s State, obs Observation, lim Limits) State {
	switch s {
	case Initializing:
		if lim.MaxIterations <= 0 {
			return Exhausted
		}
		return Iterating
	case Iterating:
		if obs.MaxDisplacement < lim.Tolerance && obs.NonFinite == 0 {
			return Converged
		}
		if obs.Iteration >= lim.MaxIterations {
			return Exhausted
		}
		return Iterating
	}
	return s
}
