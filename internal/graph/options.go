package graph

import (
	"time"

	"github.com/onnwee/citation-map/internal/config"
	"github.com/onnwee/citation-map/internal/force"
	"github.com/onnwee/citation-map/internal/integrate"
	"github.com/onnwee/citation-map/internal/layout"
)

// RunOptions is everything one layout run needs besides its collaborators.
// It is fixed for the duration of a run.
type RunOptions struct {
	Dim       int              `json:"dim"`
	Force     force.Params     `json:"force"`
	Hierarchy layout.Options   `json:"hierarchy"`
	Limits    integrate.Limits `json:"limits"`

	StepSize        float64 `json:"step_size"`
	LoadedStepSize  float64 `json:"loaded_step_size"`
	MaxDisplacement float64 `json:"max_displacement"`
	Adaptive        bool    `json:"adaptive"`

	// Jitter offsets nodes around their parent when moving down a level, in
	// units of the parent's radius.
	Jitter float64 `json:"jitter"`

	// Extent is the side of the region random positions are drawn from.
	Extent float64 `json:"extent"`

	// Seed for placement and jitter; zero picks one from the clock.
	Seed uint64 `json:"seed"`

	FreezeLoaded bool `json:"freeze_loaded"`

	// ProgressEvery throttles per-iteration logging.
	ProgressEvery time.Duration `json:"-"`
}

// DefaultRunOptions returns the options of config.Defaults.
func DefaultRunOptions() RunOptions {
	return RunOptionsFromConfig(config.Defaults().Layout)
}

// RunOptionsFromConfig converts the layout section of the configuration.
func RunOptionsFromConfig(c config.Layout) RunOptions {
	return RunOptions{
		Dim: c.Dim,
		Force: force.Params{
			DoCloseRepulsion:    c.CloseRepulsion,
			UseRefFreq:          c.UseRefFreq,
			AntiGravity:         c.AntiGravity,
			LinkStrength:        c.LinkStrength,
			Theta:               c.Theta,
			TransitiveReduction: c.TransitiveReduction,
			Workers:             c.Workers,
		},
		Hierarchy: layout.Options{
			MinNodes:     c.MinNodes,
			MinReduction: c.MinReduction,
			MaxLevels:    c.MaxLevels,
		},
		Limits: integrate.Limits{
			Tolerance:     c.Tolerance,
			MaxIterations: c.MaxIterations,
		},
		StepSize:        c.StepSize,
		LoadedStepSize:  c.LoadedStepSize,
		MaxDisplacement: c.MaxDisplacement,
		Adaptive:        c.AdaptiveStep,
		Jitter:          c.Jitter,
		Extent:          c.Extent,
		Seed:            uint64(c.Seed),
		FreezeLoaded:    c.FreezeLoaded,
		ProgressEvery:   10 * time.Second,
	}
}

// loaded returns the options used once stored positions were placed: the
// map is already close to equilibrium, so steps shrink and overlapping
// papers are pushed apart.
func (o RunOptions) loaded() RunOptions {
	o.Force.DoCloseRepulsion = true
	if o.LoadedStepSize > 0 {
		o.StepSize = o.LoadedStepSize
	}
	return o
}
