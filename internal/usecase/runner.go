package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// Runner executes batch runs: fetch records from the source, push them
// through the pipeline, export the outcomes. It can run once or on a
// schedule.
type Runner struct {
	source   ports.Source
	exporter ports.Exporter
	pipeline *Pipeline
	sched    ports.Scheduler
	logger   *slog.Logger
}

func NewRunner(source ports.Source, pipeline *Pipeline, exporter ports.Exporter, sched ports.Scheduler, logger *slog.Logger) *Runner {
	return &Runner{
		source:   source,
		exporter: exporter,
		pipeline: pipeline,
		sched:    sched,
		logger:   logger,
	}
}

// RunOnce performs a single fetch-process-export cycle. An empty fetch
// is not an error; scheduled runs often find nothing new.
func (r *Runner) RunOnce(ctx context.Context) ([]domain.Outcome, error) {
	records, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching batch: %w", err)
	}
	if len(records) == 0 {
		r.info("no records to process")
		return nil, nil
	}

	outcomes, err := r.pipeline.Run(ctx, records)
	if err != nil {
		return nil, err
	}

	if r.exporter != nil && len(outcomes) > 0 {
		if err := r.exporter.Export(ctx, outcomes); err != nil {
			return outcomes, fmt.Errorf("exporting outcomes: %w", err)
		}
	}
	return outcomes, nil
}

// Start registers the recurring job with the scheduler and returns.
// Stop must be called to release the scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if r.sched == nil {
		return fmt.Errorf("no scheduler configured")
	}
	return r.sched.Start(ctx, func(at time.Time) {
		r.info("scheduled run starting", "at", at.Format(time.RFC3339))
		outcomes, err := r.RunOnce(ctx)
		if err != nil {
			r.warn("scheduled run failed", "error", err)
			return
		}
		r.info("scheduled run finished", "outcomes", len(outcomes))
	})
}

func (r *Runner) Stop(ctx context.Context) error {
	if r.sched == nil {
		return nil
	}
	return r.sched.Stop(ctx)
}

func (r *Runner) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
