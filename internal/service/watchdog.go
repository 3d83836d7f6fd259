package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/batchwatch/internal/core"
	"github.com/target/batchwatch/internal/domain/staleness"
	obserrors "github.com/target/batchwatch/internal/observability/errors"
	"github.com/target/batchwatch/internal/observability/metrics"
	"github.com/target/batchwatch/internal/observability/notify"
	"github.com/target/batchwatch/internal/observability/statsd"
)

// WatchdogServiceOptions groups dependencies for WatchdogService.
type WatchdogServiceOptions struct {
	Source   core.PreferenceSource // Required: batch job preferences source
	Notifier core.ReportNotifier   // Required: report delivery
	Clock    core.Clock            // Optional: defaults to RealClock
	Logger   *slog.Logger          // Optional: structured logger
	Metrics  statsd.Sink           // Optional: metrics sink (StatsD-compatible)
	// Subject overrides notify.DefaultSubject on every report.
	Subject string
}

// RunResult summarises one watchdog invocation.
type RunResult struct {
	RunID    uuid.UUID
	Records  int
	Failures int
	// NoData is set when the source yielded no usable records.
	NoData   bool
	Notified bool
	// ErrorClass tags the fetch error behind a no-data run.
	ErrorClass string
}

// Result returns the metric result tag for the run.
func (r RunResult) Result() string {
	switch {
	case r.NoData:
		return metrics.ResultNoData
	case r.Failures > 0:
		return metrics.ResultReported
	default:
		return metrics.ResultClean
	}
}

// WatchdogService checks batch job preferences and reports the ones that
// need attention.
type WatchdogService struct {
	source   core.PreferenceSource
	notifier core.ReportNotifier
	clock    core.Clock
	logger   *slog.Logger
	metrics  statsd.Sink
	subject  string
}

// NewWatchdogService constructs a new WatchdogService.
func NewWatchdogService(opts WatchdogServiceOptions) (*WatchdogService, error) {
	if opts.Source == nil {
		return nil, errors.New("PreferenceSource is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("ReportNotifier is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = core.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WatchdogService{
		source:   opts.Source,
		notifier: opts.Notifier,
		clock:    clock,
		logger:   logger.With("component", "watchdog_service"),
		metrics:  opts.Metrics,
		subject:  opts.Subject,
	}, nil
}

// RunOnce performs a single fetch, evaluate and report cycle. It never
// fails: fetch problems become the synthetic no-data reason and delivery
// problems are logged by the notifier.
func (s *WatchdogService) RunOnce(ctx context.Context) RunResult {
	started := time.Now()
	now := s.clock.Now()
	res := RunResult{RunID: uuid.New()}
	logger := s.logger.With("run_id", res.RunID.String())

	logger.InfoContext(ctx, "watchdog run started", "evaluated_at", now.UTC().Format(time.RFC3339))

	prefs, err := s.source.Fetch(ctx)
	var reasons []staleness.FailureReason
	switch {
	case err != nil:
		res.NoData = true
		res.ErrorClass = obserrors.Classify(err)
		logger.ErrorContext(ctx, "failed to fetch batch job preferences",
			"error", err,
			"error_class", res.ErrorClass,
		)
		reasons = []staleness.FailureReason{staleness.NoData()}
	case len(prefs) == 0:
		res.NoData = true
		logger.WarnContext(ctx, "preferences source returned no records")
		reasons = []staleness.FailureReason{staleness.NoData()}
	default:
		res.Records = len(prefs)
		reasons = staleness.Evaluate(prefs, now)
		for _, r := range reasons {
			logger.DebugContext(ctx, "batch job needs attention",
				"job", r.Title,
				"kind", string(r.Kind),
			)
		}
	}
	res.Failures = len(reasons)

	if len(reasons) > 0 {
		report := notify.NewReport(res.RunID, now, reasons)
		if s.subject != "" {
			report.Subject = s.subject
		}
		res.Notified = s.notifier.NotifyReport(ctx, report)
	}

	metrics.EmitRun(s.metrics, metrics.RunMetric{
		Result:     res.Result(),
		Records:    res.Records,
		Failures:   res.Failures,
		Duration:   time.Since(started),
		FinishedAt: now,
		Err:        err,
	})

	logger.InfoContext(ctx, "watchdog run finished",
		"result", res.Result(),
		"records", res.Records,
		"failures", res.Failures,
		"notified", res.Notified,
	)
	return res
}
