package core

import (
	"context"

	"github.com/target/batchwatch/internal/domain/model"
	"github.com/target/batchwatch/internal/observability/notify"
)

// This file contains the ports the watchdog service depends on.
// Adapters in internal/adapters and internal/observability implement them.

// PreferenceSource fetches the current batch job preferences from the application.
type PreferenceSource interface {
	Fetch(ctx context.Context) ([]model.JobPreference, error)
}

// ReportNotifier delivers one run's report to every configured sink.
// Empty reports are never sent. The result reports whether the email was accepted.
type ReportNotifier interface {
	NotifyReport(ctx context.Context, report notify.Report) bool
}
