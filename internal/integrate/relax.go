package integrate

import (
	"context"

	"github.com/onnwee/citation-map/internal/force"
	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/layout"
)

// StepControl adjusts the step size from the force energy of successive
// iterations: five decreases in a row grow the step by 1/0.95, any increase
// shrinks it by 0.95. With Adaptive unset the step never changes.
type StepControl struct {
	Step     float64
	Adaptive bool

	prev     float64
	progress int
	started  bool
}

const (
	stepShrink = 0.95
	growAfter  = 5
)

// Update records the energy of the current iteration and returns the step
// size to use for it.
func (c *StepControl) Update(energy float64) float64 {
	if !c.Adaptive {
		return c.Step
	}
	if !c.started {
		c.started = true
		c.prev = energy
		return c.Step
	}
	if energy < c.prev {
		c.progress++
		if c.progress >= growAfter {
			c.progress = 0
			c.Step /= stepShrink
		}
	} else {
		c.progress = 0
		c.Step *= stepShrink
	}
	c.prev = energy
	return c.Step
}

// ForceFunc computes the forces on every node of l for the current positions.
type ForceFunc[V geom.Vector[V]] func(ctx context.Context, l *layout.Layout[V]) ([]V, error)

// Options configures Relax.
type Options struct {
	Limits

	StepSize        float64
	MaxDisplacement float64
	Adaptive        bool

	// OnIteration, if set, is called after every step.
	OnIteration func(Progress)
}

// Progress describes one completed iteration.
type Progress struct {
	Iteration       int
	MaxDisplacement float64
	Energy          float64
	StepSize        float64
	NonFinite       int
	State           State
}

// Result is the terminal state of a relaxed level.
type Result struct {
	State           State
	Iterations      int
	MaxDisplacement float64
	StepSize        float64

	// NonFinite is the number of node steps skipped for a NaN or infinite
	// force, summed over all iterations.
	NonFinite int
}

// Relax iterates forces and Euler steps on l until the level converges or
// exhausts its iteration budget. Exhaustion is a normal outcome, not an
// error; errors come only from forces or ctx.
func Relax[V geom.Vector[V]](ctx context.Context, l *layout.Layout[V], forces ForceFunc[V], opts Options) (Result, error) {
	ctl := StepControl{Step: opts.StepSize, Adaptive: opts.Adaptive}
	res := Result{StepSize: opts.StepSize}

	state := Next(Initializing, Observation{}, opts.Limits)
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		f, err := forces(ctx, l)
		if err != nil {
			return res, err
		}
		energy := force.Energy(f)
		step := ctl.Update(energy)

		moved, bad := Step(l, f, step, opts.MaxDisplacement)
		res.Iterations++
		res.MaxDisplacement = moved
		res.StepSize = step
		res.NonFinite += bad

		state = Next(state, Observation{Iteration: res.Iterations, MaxDisplacement: moved, NonFinite: bad}, opts.Limits)
		if opts.OnIteration != nil {
			opts.OnIteration(Progress{
				Iteration:       res.Iterations,
				MaxDisplacement: moved,
				Energy:          energy,
				StepSize:        step,
				NonFinite:       bad,
				State:           state,
			})
		}
	}
	res.State = state
	return res, nil
}
