// Package mocks provides mock implementations of the watchdog ports for testing.
//
// This package uses go.uber.org/mock (gomock). The mocks are generated using
// go:generate directives and committed alongside the interfaces they mirror.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	source := mocks.NewMockPreferenceSource(ctrl)
//	source.EXPECT().Fetch(gomock.Any()).Return(prefs, nil)
package mocks

// Generate mock for PreferenceSource interface from internal/core package:
// Fetch
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=preference_source_mock.go github.com/target/batchwatch/internal/core PreferenceSource

// Generate mock for ReportNotifier interface from internal/core package:
// NotifyReport
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=report_notifier_mock.go github.com/target/batchwatch/internal/core ReportNotifier

// Generate mock for Sink interface from internal/observability/notify package:
// SendReport
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=sink_mock.go github.com/target/batchwatch/internal/observability/notify Sink
