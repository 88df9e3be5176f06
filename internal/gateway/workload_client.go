package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WorkloadClient adjusts technician counters in the technician service.
type WorkloadClient struct {
	client *jsonClient
}

// NewWorkloadClient builds a client for baseURL.
func NewWorkloadClient(baseURL string, timeout time.Duration) (*WorkloadClient, error) {
	c, err := newJSONClient("technician-service", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &WorkloadClient{client: c}, nil
}

// AdjustWorkload applies delta to the technician's active-job counter.
func (c *WorkloadClient) AdjustWorkload(ctx context.Context, technicianID string, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("workload delta must be +1 or -1, got %d", delta)
	}
	payload := map[string]int{"delta": delta}
	return c.client.do(ctx, http.MethodPost, c.client.resolve("/api/v1/technicians/%s/workload", technicianID), payload, nil)
}

type loggingWorkload struct {
	logger *zap.Logger
}

// LoggingWorkload records adjustments in the log only. It stands in when no
// technician service is configured.
func LoggingWorkload(logger *zap.Logger) WorkloadTracker {
	return loggingWorkload{logger: logger}
}

func (w loggingWorkload) AdjustWorkload(_ context.Context, technicianID string, delta int) error {
	w.logger.Debug("workload adjustment not forwarded", zap.String("technician_id", technicianID), zap.Int("delta", delta))
	return nil
}
