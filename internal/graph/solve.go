package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/citation-map/internal/force"
	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/integrate"
	"github.com/onnwee/citation-map/internal/layout"
	"github.com/onnwee/citation-map/internal/logger"
	"github.com/onnwee/citation-map/internal/metrics"
	"github.com/onnwee/citation-map/internal/tracing"
)

// LevelResult is the outcome of relaxing one level of the hierarchy.
type LevelResult struct {
	integrate.Result
	Level    int
	Nodes    int
	Duration time.Duration
}

// Solve relaxes every level of the hierarchy starting at root, coarsest
// first. After a level finishes, its positions seed the next finer level.
// The results are in the order the levels were relaxed; on error they cover
// the levels finished so far.
func Solve[V geom.Vector[V]](ctx context.Context, root *layout.Layout[V], opts RunOptions, rng *rand.Rand) ([]LevelResult, error) {
	log := logger.WithRun(ctx).With("component", "solver")

	var results []LevelResult
	for l := root; l != nil; l = l.Child {
		res, err := relaxLevel(ctx, l, opts, log)
		if err != nil {
			return results, fmt.Errorf("relax level %d: %w", l.Level, err)
		}
		results = append(results, res)
		if l.Child != nil {
			layout.PropagateDown(l, l.Child, rng, opts.Jitter)
		}
	}
	return results, nil
}

func relaxLevel[V geom.Vector[V]](ctx context.Context, l *layout.Layout[V], opts RunOptions, log *slog.Logger) (LevelResult, error) {
	ctx, span := tracing.StartSpan(ctx, "layout.level", trace.WithAttributes(
		attribute.Int("level", l.Level),
		attribute.Int("nodes", len(l.Nodes)),
		attribute.Int("links", len(l.Links)),
	))
	defer span.End()

	metrics.LayoutLevelNodes.WithLabelValues(strconv.Itoa(l.Level)).Set(float64(len(l.Nodes)))
	progress := logger.NewProgress(log, opts.ProgressEvery)

	forces := func(ctx context.Context, l *layout.Layout[V]) ([]V, error) {
		start := time.Now()
		f, err := force.Pass(ctx, l, opts.Force)
		metrics.ForcePassDuration.Observe(time.Since(start).Seconds())
		return f, err
	}

	start := time.Now()
	res, err := integrate.Relax(ctx, l, forces, integrate.Options{
		Limits:          opts.Limits,
		StepSize:        opts.StepSize,
		MaxDisplacement: opts.MaxDisplacement,
		Adaptive:        opts.Adaptive,
		OnIteration: func(p integrate.Progress) {
			metrics.LayoutMaxDisplacement.Set(p.MaxDisplacement)
			progress.Log("relaxing level",
				"level", l.Level,
				"iteration", p.Iteration,
				"max_displacement", p.MaxDisplacement,
				"energy", p.Energy,
				"step", p.StepSize,
			)
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return LevelResult{}, err
	}

	if res.NonFinite > 0 {
		metrics.LayoutNonFiniteForces.Add(float64(res.NonFinite))
		log.Warn("non-finite forces on level, affected nodes were left in place",
			"level", l.Level,
			"skipped_steps", res.NonFinite,
			"state", res.State.String(),
		)
	}
	metrics.LayoutLevelIterations.WithLabelValues(res.State.String()).Observe(float64(res.Iterations))
	metrics.LayoutLevelDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("iterations", res.Iterations),
		attribute.String("state", res.State.String()),
		attribute.Int("nonfinite_steps", res.NonFinite),
	)
	log.Info("level relaxed",
		"level", l.Level,
		"nodes", len(l.Nodes),
		"iterations", res.Iterations,
		"state", res.State.String(),
		"max_displacement", res.MaxDisplacement,
		"duration", elapsed,
	)
	return LevelResult{Result: res, Level: l.Level, Nodes: len(l.Nodes), Duration: elapsed}, nil
}
