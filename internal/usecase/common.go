package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/ports"
)

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With("component", component)
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// batchReporter records the outcome of a batch job and notifies operators
// when items failed.
type batchReporter struct {
	reporter ports.Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func (b batchReporter) finish(ctx context.Context, job string, result domain.BatchResult, elapsed time.Duration) {
	b.metrics.RecordJob(job, result.Processed, result.Updated, result.Errors, elapsed.Seconds())
	b.logger.Info("batch finished",
		"job", job,
		"processed", result.Processed,
		"updated", result.Updated,
		"errors", result.Errors,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	if result.Errors == 0 || b.reporter == nil {
		return
	}
	report := fmt.Sprintf("%s: %d processed, %d updated, %d failed in %s",
		job, result.Processed, result.Updated, result.Errors, elapsed.Round(time.Second))
	if err := b.reporter.PublishReport(ctx, report); err != nil {
		b.logger.Warn("publish batch report failed", "job", job, "error", err)
	}
}

func (b batchReporter) failed(job string, err error) {
	b.metrics.RecordJobFailure(job)
	b.logger.Error("batch failed", "job", job, "error", err)
}
