// Package graph runs the layout: it loads the paper graph, builds the
// multiresolution hierarchy, relaxes it coarse to fine (or only the finest
// level when stored positions were loaded) and saves the finest level.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/citation-map/internal/errorreporting"
	"github.com/onnwee/citation-map/internal/geom"
	"github.com/onnwee/citation-map/internal/layout"
	"github.com/onnwee/citation-map/internal/logger"
	"github.com/onnwee/citation-map/internal/metrics"
	"github.com/onnwee/citation-map/internal/papers"
	"github.com/onnwee/citation-map/internal/store"
	"github.com/onnwee/citation-map/internal/tracing"
)

// ErrRunInProgress is returned by Run while another run is executing.
var ErrRunInProgress = errors.New("layout run already in progress")

// StateFailed is the run state recorded when a run ends with an error.
const StateFailed = "failed"

type Service struct {
	source    papers.Source
	positions store.Backend     // nil disables loading and saving
	runs      store.RunRecorder // nil disables run records
	opts      RunOptions

	mu      sync.Mutex
	running bool
	last    *store.Run
}

func NewService(source papers.Source, positions store.Backend, runs store.RunRecorder, opts RunOptions) *Service {
	return &Service{
		source:    source,
		positions: positions,
		runs:      runs,
		opts:      opts,
	}
}

// LastRun returns the record of the most recent finished run.
func (s *Service) LastRun() (store.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return store.Run{}, false
	}
	return *s.last, true
}

// Running reports whether a run is executing.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run performs one complete layout run. The returned record is also kept
// for LastRun and, when a recorder is configured, persisted.
func (s *Service) Run(ctx context.Context) (store.Run, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return store.Run{}, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	run := store.Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Dim:       s.opts.Dim,
		State:     StateFailed,
	}
	if params, err := json.Marshal(s.opts); err == nil {
		run.Params = params
	}

	ctx = logger.ContextWithRun(ctx, run.ID.String())
	ctx, span := tracing.StartSpan(ctx, "layout.run", trace.WithAttributes(
		attribute.String("run_id", run.ID.String()),
		attribute.Int("dim", s.opts.Dim),
	))
	defer span.End()
	log := logger.WithRun(ctx)
	log.Info("layout run started", "dim", s.opts.Dim)

	var err error
	switch s.opts.Dim {
	case 3:
		err = execute[geom.Vec3](ctx, s, &run)
	default:
		err = execute[geom.Vec2](ctx, s, &run)
	}
	run.FinishedAt = time.Now().UTC()
	elapsed := run.FinishedAt.Sub(run.StartedAt)
	metrics.LayoutRunDuration.Observe(elapsed.Seconds())

	if err != nil {
		run.State = StateFailed
		metrics.LayoutRunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("layout run failed", "error", err, "duration", elapsed)
		errorreporting.CaptureErrorWithContext(err,
			map[string]string{"run_id": run.ID.String(), "dim": strconv.Itoa(run.Dim)},
			map[string]any{"nodes": run.Nodes, "iterations": run.Iterations},
		)
	} else {
		metrics.LayoutRunsTotal.WithLabelValues("success").Inc()
		metrics.LayoutLastRunTimestamp.Set(float64(run.FinishedAt.Unix()))
		span.SetAttributes(attribute.String("state", run.State), attribute.Int("nodes", run.Nodes))
		log.Info("layout run finished", "state", run.State, "nodes", run.Nodes, "duration", elapsed)
	}

	if s.runs != nil {
		// the run context may already be cancelled; the record is still wanted
		if rerr := s.runs.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
			metrics.PositionStoreErrors.WithLabelValues("record_run").Inc()
			log.Warn("failed to record layout run", "error", rerr)
		}
	}

	s.mu.Lock()
	s.running = false
	s.last = &run
	s.mu.Unlock()
	return run, err
}

func execute[V geom.Vector[V]](ctx context.Context, s *Service, run *store.Run) error {
	log := logger.WithRun(ctx)

	set, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load papers: %w", err)
	}
	root, err := layout.BuildHierarchy[V](set, s.opts.Hierarchy, nil)
	if err != nil {
		return fmt.Errorf("build hierarchy: %w", err)
	}
	fine := layout.Finest(root)
	run.Nodes = len(fine.Nodes)
	levels := layout.Levels(root)
	metrics.LayoutLevels.Set(float64(levels))
	log.Info("hierarchy built",
		"papers", len(set.Papers),
		"links", len(set.Links),
		"levels", levels,
		"top_nodes", len(root.Nodes),
	)

	seed := s.opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	layout.Randomize(fine, rng, s.opts.Extent)

	// a stored map is refined at the finest level only; PropagateDown would
	// overwrite it
	opts, top := s.opts, root
	if placed := placeStored(ctx, s, root); placed > 0 {
		opts = opts.loaded()
		top = fine
	}
	layout.PropagateUpAll(root)

	results, err := Solve(ctx, top, opts, rng)
	for _, r := range results {
		run.Iterations = append(run.Iterations, int64(r.Iterations))
	}
	if err != nil {
		return err
	}
	run.State = results[len(results)-1].State.String()

	if s.positions == nil {
		return nil
	}
	// saving is not interruptible once the layout is done
	if err := store.Save(context.WithoutCancel(ctx), s.positions, root); err != nil {
		metrics.PositionStoreErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("save positions: %w", err)
	}
	log.Info("positions saved", "nodes", run.Nodes)
	return nil
}

// placeStored loads stored positions into the finest level and returns how
// many nodes were placed. A failed load leaves the random placement in
// place and the run continues.
func placeStored[V geom.Vector[V]](ctx context.Context, s *Service, root *layout.Layout[V]) int {
	if s.positions == nil {
		return 0
	}
	log := logger.WithRun(ctx)

	load := store.Load[V]
	if s.opts.FreezeLoaded {
		load = store.LoadFixed[V]
	}
	placed, err := load(ctx, s.positions, root)
	if err != nil {
		metrics.PositionStoreErrors.WithLabelValues("load").Inc()
		log.Warn("failed to load stored positions, starting from random placement", "error", err)
		errorreporting.AddBreadcrumb("store", "position load failed: "+err.Error(), sentry.LevelWarning)
		return 0
	}
	metrics.PositionsLoaded.Set(float64(placed))
	log.Info("stored positions loaded", "placed", placed, "frozen", s.opts.FreezeLoaded && placed > 0)
	return placed
}
