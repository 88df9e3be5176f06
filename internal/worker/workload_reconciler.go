package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/service"
)

// WorkloadSource recomputes active jobs from the request store.
type WorkloadSource interface {
	ActiveWorkload(ctx context.Context) (service.Workload, error)
}

// WorkloadSink receives the recomputed picture.
type WorkloadSink interface {
	SetWorkload(jobs map[string]int, occupiedBays int)
}

// WorkloadReconciler periodically recomputes technician workload from ACTIVE
// requests, which is the reference for the remote counters.
type WorkloadReconciler struct {
	source   WorkloadSource
	sink     WorkloadSink
	interval time.Duration
	logger   *zap.Logger
}

// NewWorkloadReconciler builds a reconciler. A zero interval disables Run.
func NewWorkloadReconciler(source WorkloadSource, sink WorkloadSink, interval time.Duration, logger *zap.Logger) *WorkloadReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadReconciler{source: source, sink: sink, interval: interval, logger: logger}
}

// Run reconciles once immediately and then on every tick until ctx is done.
func (r *WorkloadReconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("workload reconciliation disabled")
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.ReconcileOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce runs a single pass. Failures are logged; the next tick retries.
func (r *WorkloadReconciler) ReconcileOnce(ctx context.Context) {
	workload, err := r.source.ActiveWorkload(ctx)
	if err != nil {
		r.logger.Warn("workload reconciliation failed", zap.Error(err))
		return
	}
	if r.sink != nil {
		r.sink.SetWorkload(workload.Jobs, workload.OccupiedBays)
	}
	r.logger.Info("workload reconciled",
		zap.Int("technicians", len(workload.Jobs)),
		zap.Int("occupied_bays", workload.OccupiedBays),
		zap.Any("active_jobs", workload.Jobs))
}
