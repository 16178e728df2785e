package app

import (
	"context"
	"fmt"
	"time"

	"gopanel/internal"
)

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Stage     string `json:"stage"`
	RuntimeMs int64  `json:"runtime_ms"`
}

// StageRunner executes pipeline stages in order, checking for
// cancellation before each one and timing it
type StageRunner struct {
	logger  *internal.Logger
	timings []StageTiming
}

// NewStageRunner creates a new stage runner
func NewStageRunner(logger *internal.Logger) *StageRunner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StageRunner{logger: logger}
}

// Run executes fn as the named stage. A cancelled context stops the
// pipeline before the stage starts.
func (r *StageRunner) Run(ctx context.Context, stage string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage not started: %w", stage, err)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.timings = append(r.timings, StageTiming{Stage: stage, RuntimeMs: elapsed.Milliseconds()})

	if err != nil {
		r.logger.Debug("stage %s failed after %v: %v", stage, elapsed, err)
		return err
	}
	r.logger.Debug("stage %s completed in %v", stage, elapsed)
	return nil
}

// Timings returns the stages run so far
func (r *StageRunner) Timings() []StageTiming {
	return append([]StageTiming(nil), r.timings...)
}
