// Package metrics emits the standard watchdog metric set onto a statsd.Sink.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/batchwatch/internal/observability/errors"
	"github.com/target/batchwatch/internal/observability/statsd"
)

// Run result tags.
const (
	ResultClean    = "clean"
	ResultReported = "reported"
	ResultNoData   = "no_data"
)

// Notification result tags.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)

// Metric names.
const (
	MetricRun             = "watchdog.run"
	MetricFailures        = "watchdog.failures"
	MetricRecords         = "watchdog.records"
	MetricRunDuration     = "watchdog.run_duration"
	MetricNotify          = "watchdog.notify"
	MetricLastSuccessUnix = "watchdog.last_success_epoch"
)

// RunMetric captures the outcome of one watchdog run.
type RunMetric struct {
	Result     string
	Records    int
	Failures   int
	Duration   time.Duration
	FinishedAt time.Time
	// Err is the fetch error behind a no_data run, if any.
	Err error
}

// EmitRun emits the per-run counters, gauges and timing.
func EmitRun(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(MetricRun, 1, tags)
	sink.Gauge(MetricRecords, float64(in.Records), nil)
	sink.Gauge(MetricFailures, float64(in.Failures), nil)
	if in.Duration > 0 {
		sink.Timing(MetricRunDuration, in.Duration, CloneTags(tags))
	}
	if in.Result != ResultNoData && !in.FinishedAt.IsZero() {
		sink.Gauge(MetricLastSuccessUnix, float64(in.FinishedAt.Unix()), nil)
	}
}

// EmitNotify counts one delivery attempt to a named sink.
func EmitNotify(sink statsd.Sink, sinkName string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"sink": sinkName, "result": NotifySuccess}
	if err != nil {
		tags["result"] = NotifyError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(MetricNotify, 1, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
