package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal            = "codegnosis.analysis.runs.total"
	metricRunDuration          = "codegnosis.analysis.run.duration.seconds"
	metricFilesIngested        = "codegnosis.analysis.files.total"
	metricCyclesDetected       = "codegnosis.analysis.cycles.total"
	metricPersistFailures      = "codegnosis.persistence.failures.total"
	metricProgressPollsTotal   = "codegnosis.progress.polls.total"
	metricProgressPollFailures = "codegnosis.progress.poll.failures.total"

	attrOutcome = "outcome"
)

// RunMetrics holds OTel instruments for analyzer-run metrics.
type RunMetrics struct {
	runsTotal            metric.Int64Counter
	runDuration          metric.Float64Histogram
	filesIngested        metric.Int64Counter
	cyclesDetected       metric.Int64Counter
	persistFailures      metric.Int64Counter
	progressPolls        metric.Int64Counter
	progressPollFailures metric.Int64Counter
}

// RunStats holds the statistics for a single completed analyzer run.
type RunStats struct {
	Outcome  string
	Duration time.Duration
	Files    int
	Cycles   int
}

// NewRunMetrics creates analyzer-run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:            b.counter(metricRunsTotal, "Total analyzer runs by outcome", "{run}"),
		runDuration:          b.histogram(metricRunDuration, "Analyzer run duration in seconds", "s", durationBucketBoundaries...),
		filesIngested:        b.counter(metricFilesIngested, "Total files ingested from analyzer results", "{file}"),
		cyclesDetected:       b.counter(metricCyclesDetected, "Total dependency cycles reported", "{cycle}"),
		persistFailures:      b.counter(metricPersistFailures, "Total persistence failures", "{failure}"),
		progressPolls:        b.counter(metricProgressPollsTotal, "Total progress polls", "{poll}"),
		progressPollFailures: b.counter(metricProgressPollFailures, "Total malformed progress snapshots", "{failure}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records statistics for a completed analyzer run.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, stats.Outcome))

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	rm.filesIngested.Add(ctx, int64(stats.Files))
	rm.cyclesDetected.Add(ctx, int64(stats.Cycles))
}

// RecordPersistFailure counts a best-effort persistence phase that failed.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordPersistFailure(ctx context.Context) {
	if rm == nil {
		return
	}

	rm.persistFailures.Add(ctx, 1)
}

// RecordProgressPoll counts one progress poll; malformed marks snapshots
// that existed but did not parse. Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordProgressPoll(ctx context.Context, malformed bool) {
	if rm == nil {
		return
	}

	rm.progressPolls.Add(ctx, 1)

	if malformed {
		rm.progressPollFailures.Add(ctx, 1)
	}
}
