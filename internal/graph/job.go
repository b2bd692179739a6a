package graph

import (
	"context"
	"errors"
	"time"

	"github.com/onnwee/citation-map/internal/logger"
)

// Job re-runs the layout on a fixed interval.
type Job struct {
	service  *Service
	interval time.Duration
}

func NewJob(service *Service, interval time.Duration) *Job {
	return &Job{
		service:  service,
		interval: interval,
	}
}

// Start runs the layout immediately and then on every tick until ctx is
// done. Failed runs are logged; the next tick tries again.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	_, err := j.service.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		logger.Info("skipping scheduled layout run, previous run still in progress")
	case ctx.Err() != nil:
		// shutting down
	default:
		logger.Error("scheduled layout run failed", "error", err)
	}
}
