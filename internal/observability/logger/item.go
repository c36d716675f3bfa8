package logger

import (
	"context"

	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	"go.uber.org/zap"
)

// ItemFailed logs a per-item failure inside a job. The batch carries on;
// the record is what operators grep for when a count in the run summary
// is non-zero.
func ItemFailed(ctx context.Context, base *zap.Logger, step string, err error, fields ...zap.Field) {
	if base == nil || err == nil {
		return
	}
	fields = append(fields,
		zap.String("step", step),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
	WithContext(ctx, base).Warn("scheduler.item.failed", fields...)
}
