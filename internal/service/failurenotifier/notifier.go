// Package failurenotifier delivers failed batch jobs reports to the primary
// email sink and any configured mirrors.
package failurenotifier

import (
	"context"
	"log/slog"

	"github.com/target/batchwatch/internal/core"
	"github.com/target/batchwatch/internal/observability/metrics"
	"github.com/target/batchwatch/internal/observability/notify"
	"github.com/target/batchwatch/internal/observability/statsd"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	// Primary is the email sink; it receives every non-empty report exactly once.
	Primary SinkRegistration
	// Mirrors receive the same report after the primary sink.
	Mirrors []SinkRegistration
	Metrics statsd.Sink
}

// Service dispatches reports to the registered sinks, in order.
type Service struct {
	logger  *slog.Logger
	primary *SinkRegistration
	mirrors []SinkRegistration
	metrics statsd.Sink
}

var _ core.ReportNotifier = (*Service)(nil)

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		logger:  logger.With("component", "failure_notifier"),
		metrics: opts.Metrics,
	}
	if opts.Primary.Sink != nil {
		primary := normalize(opts.Primary, "email")
		s.primary = &primary
	}
	for _, entry := range opts.Mirrors {
		if entry.Sink == nil {
			continue
		}
		s.mirrors = append(s.mirrors, normalize(entry, "mirror"))
	}
	return s
}

func normalize(entry SinkRegistration, fallback string) SinkRegistration {
	if entry.Name == "" {
		entry.Name = fallback
	}
	return entry
}

// NotifyReport delivers a non-empty report once to each sink. Delivery errors
// are logged and counted, never returned. It reports whether the primary sink
// accepted the report.
func (s *Service) NotifyReport(ctx context.Context, report notify.Report) bool {
	if report.Empty() {
		return false
	}

	delivered := false
	if s.primary != nil {
		delivered = s.deliver(ctx, *s.primary, report)
	} else {
		s.logger.WarnContext(ctx, "no primary sink configured; report not emailed",
			"run_id", report.RunID.String(),
		)
	}

	for _, entry := range s.mirrors {
		s.deliver(ctx, entry, report)
	}
	return delivered
}

func (s *Service) deliver(ctx context.Context, entry SinkRegistration, report notify.Report) bool {
	err := entry.Sink.SendReport(ctx, report)
	metrics.EmitNotify(s.metrics, entry.Name, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failure notifier delivery error",
			"sink", entry.Name,
			"run_id", report.RunID.String(),
			"reasons", len(report.Reasons),
			"error", err,
		)
		return false
	}
	s.logger.InfoContext(ctx, "failure report delivered",
		"sink", entry.Name,
		"run_id", report.RunID.String(),
		"reasons", len(report.Reasons),
		"severity", report.Severity(),
	)
	return true
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s.primary != nil || len(s.mirrors) > 0
}
