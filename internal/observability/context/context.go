package context

import "context"

type requestIDKey struct{}
type runIDKey struct{}
type jobKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithRun tags the context with the scheduler job name and run id.
func WithRun(ctx context.Context, job, runID string) context.Context {
	ctx = context.WithValue(ctx, jobKey{}, job)
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

func JobFromContext(ctx context.Context) string {
	v, _ := ctx.Value(jobKey{}).(string)
	return v
}
