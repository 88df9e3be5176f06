package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Effect is a downstream call whose failure must never fail the primary operation.
type Effect interface {
	Apply(ctx context.Context) error
}

// EffectFunc adapts a function to Effect.
type EffectFunc func(ctx context.Context) error

// Apply calls f.
func (f EffectFunc) Apply(ctx context.Context) error {
	return f(ctx)
}

// FailureRecorder counts swallowed failures per effect name.
type FailureRecorder interface {
	RecordSideEffectFailure(effect string)
}

// Degrader runs effects with a bounded timeout, logging and absorbing failures.
type Degrader struct {
	logger   *zap.Logger
	timeout  time.Duration
	recorder FailureRecorder
}

// NewDegrader builds a Degrader. recorder may be nil.
func NewDegrader(logger *zap.Logger, timeout time.Duration, recorder FailureRecorder) *Degrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Degrader{logger: logger, timeout: timeout, recorder: recorder}
}

// Attempt runs effect and returns its error for bookkeeping only; callers must
// not propagate it. The call is detached from ctx cancellation so a caller that
// hangs up after the primary write does not abort the effect, but it still
// carries ctx values and is bounded by the degrader timeout.
func (d *Degrader) Attempt(ctx context.Context, name, serviceRequestID string, effect Effect) (err error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			d.logger.Warn("best-effort call failed",
				zap.String("effect", name),
				zap.String("service_request_id", serviceRequestID),
				zap.Error(err),
			)
			if d.recorder != nil {
				d.recorder.RecordSideEffectFailure(name)
			}
		}
	}()

	return effect.Apply(callCtx)
}
