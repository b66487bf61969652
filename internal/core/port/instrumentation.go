package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordTableDuration(ctx context.Context, ms float64)
	IncrementFieldErrors(ctx context.Context)
	IncrementRuleMismatches(ctx context.Context, rule string, n int64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordTableDuration(context.Context, float64)           {}
func (NoopInstrumentation) IncrementFieldErrors(context.Context)                   {}
func (NoopInstrumentation) IncrementRuleMismatches(context.Context, string, int64) {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)            {}
