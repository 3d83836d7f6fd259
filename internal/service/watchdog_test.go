package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/batchwatch/internal/adapters/preferences"
	"github.com/target/batchwatch/internal/core"
	"github.com/target/batchwatch/internal/domain/model"
	"github.com/target/batchwatch/internal/domain/staleness"
	"github.com/target/batchwatch/internal/mocks"
	"github.com/target/batchwatch/internal/observability/metrics"
	"github.com/target/batchwatch/internal/observability/notify"
	"github.com/target/batchwatch/internal/observability/statsd"
	"github.com/target/batchwatch/internal/service/failurenotifier"
)

var evalTime = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func pref(title string, enabled bool, lastRun time.Duration, interval, duration int) model.JobPreference {
	return model.JobPreference{
		Title:                 title,
		Enabled:               enabled,
		LastRunAt:             model.RanAt(evalTime.Add(-lastRun)),
		IntervalMinutes:       interval,
		ApproxDurationMinutes: duration,
	}
}

// captureReport stores the report passed to NotifyReport and returns ok.
func captureReport(dst *notify.Report, ok bool) func(context.Context, notify.Report) bool {
	return func(_ context.Context, r notify.Report) bool {
		*dst = r
		return ok
	}
}

func newWatchdog(t *testing.T, source core.PreferenceSource, notifier core.ReportNotifier, sink statsd.Sink) *WatchdogService {
	t.Helper()
	svc, err := NewWatchdogService(WatchdogServiceOptions{
		Source:   source,
		Notifier: notifier,
		Clock:    core.NewFixedClock(evalTime),
		Metrics:  sink,
	})
	require.NoError(t, err)
	return svc
}

func TestNewWatchdogServiceValidation(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewWatchdogService(WatchdogServiceOptions{Notifier: mocks.NewMockReportNotifier(ctrl)})
	assert.Error(t, err)

	_, err = NewWatchdogService(WatchdogServiceOptions{Source: mocks.NewMockPreferenceSource(ctrl)})
	assert.Error(t, err)
}

func TestRunOnce_ReportsFailuresInFetchOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)

	source.EXPECT().Fetch(gomock.Any()).Return([]model.JobPreference{
		pref("Job C", false, time.Minute, 60, 10),
		pref("Job B", true, 30*time.Minute, 60, 20),
		pref("Job A", true, 2*time.Hour, 60, 10),
		{Title: "Job D", Enabled: true, LastRunAt: model.NeverRun, IntervalMinutes: 15},
	}, nil)

	var got notify.Report
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).DoAndReturn(captureReport(&got, true)).Times(1)

	rec := &statsd.Recorder{}
	res := newWatchdog(t, source, notifier, rec).RunOnce(context.Background())

	assert.Equal(t, 4, res.Records)
	assert.Equal(t, 3, res.Failures)
	assert.True(t, res.Notified)
	assert.False(t, res.NoData)
	assert.Equal(t, metrics.ResultReported, res.Result())

	require.Len(t, got.Reasons, 3)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, evalTime, got.GeneratedAt)
	assert.Equal(t, "Job C", got.Reasons[0].Title)
	assert.Equal(t, staleness.KindDisabled, got.Reasons[0].Kind)
	assert.Equal(t, "Job A", got.Reasons[1].Title)
	assert.Equal(t, staleness.KindOverdue, got.Reasons[1].Kind)
	assert.Equal(t, "Job D", got.Reasons[2].Title)
	assert.Equal(t, staleness.KindNeverRun, got.Reasons[2].Kind)

	runs := rec.Find(metrics.MetricRun)
	require.Len(t, runs, 1)
	assert.Equal(t, metrics.ResultReported, runs[0].Tags["result"])
}

func TestRunOnce_AllHealthySendsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)

	source.EXPECT().Fetch(gomock.Any()).Return([]model.JobPreference{
		pref("Job B", true, 30*time.Minute, 60, 20),
		pref("Boundary", true, 80*time.Minute, 60, 10),
	}, nil)
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).Times(0)

	res := newWatchdog(t, source, notifier, nil).RunOnce(context.Background())

	assert.Equal(t, 2, res.Records)
	assert.Zero(t, res.Failures)
	assert.False(t, res.Notified)
	assert.Equal(t, metrics.ResultClean, res.Result())
}

func TestRunOnce_JobBecomesOverdueAsClockAdvances(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)
	clock := core.NewFixedClock(evalTime)

	// Window is 70m and the job last ran 30m before the first run.
	source.EXPECT().Fetch(gomock.Any()).Return([]model.JobPreference{
		pref("Hourly", true, 30*time.Minute, 60, 5),
	}, nil).Times(3)

	var got notify.Report
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).DoAndReturn(captureReport(&got, true)).Times(1)

	svc, err := NewWatchdogService(WatchdogServiceOptions{
		Source:   source,
		Notifier: notifier,
		Clock:    clock,
	})
	require.NoError(t, err)

	first := svc.RunOnce(context.Background())
	assert.Equal(t, metrics.ResultClean, first.Result())

	clock.Advance(40 * time.Minute)
	edge := svc.RunOnce(context.Background())
	assert.Equal(t, metrics.ResultClean, edge.Result(), "exactly at the window edge")

	clock.Advance(time.Minute)
	late := svc.RunOnce(context.Background())
	assert.Equal(t, metrics.ResultReported, late.Result())
	assert.True(t, late.Notified)
	require.Len(t, got.Reasons, 1)
	assert.Equal(t, staleness.KindOverdue, got.Reasons[0].Kind)
	assert.Equal(t, evalTime.Add(41*time.Minute), got.GeneratedAt)
}

func TestRunOnce_EmptyFetchReportsNoData(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)

	source.EXPECT().Fetch(gomock.Any()).Return([]model.JobPreference{}, nil)

	var got notify.Report
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).DoAndReturn(captureReport(&got, true)).Times(1)

	res := newWatchdog(t, source, notifier, nil).RunOnce(context.Background())

	assert.True(t, res.NoData)
	assert.Empty(t, res.ErrorClass)
	assert.Equal(t, 1, res.Failures)
	assert.True(t, got.NoDataOnly())
	assert.Equal(t, []staleness.FailureReason{staleness.NoData()}, got.Reasons)
}

func TestRunOnce_FetchErrorReportsNoData(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)

	source.EXPECT().Fetch(gomock.Any()).Return(nil, &preferences.FetchError{
		Kind:       preferences.KindDecode,
		StatusCode: http.StatusOK,
		Err:        assert.AnError,
	})

	var got notify.Report
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).DoAndReturn(captureReport(&got, false)).Times(1)

	rec := &statsd.Recorder{}
	res := newWatchdog(t, source, notifier, rec).RunOnce(context.Background())

	assert.True(t, res.NoData)
	assert.False(t, res.Notified)
	assert.Equal(t, "fetch_decode", res.ErrorClass)
	assert.Equal(t, metrics.ResultNoData, res.Result())
	assert.True(t, got.NoDataOnly())

	runs := rec.Find(metrics.MetricRun)
	require.Len(t, runs, 1)
	assert.Equal(t, map[string]string{"result": metrics.ResultNoData, "error_class": "fetch_decode"}, runs[0].Tags)
	assert.Empty(t, rec.Find(metrics.MetricLastSuccessUnix))
}

func TestRunOnce_SubjectOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPreferenceSource(ctrl)
	notifier := mocks.NewMockReportNotifier(ctrl)

	source.EXPECT().Fetch(gomock.Any()).Return([]model.JobPreference{pref("Job C", false, 0, 1, 1)}, nil)
	var got notify.Report
	notifier.EXPECT().NotifyReport(gomock.Any(), gomock.Any()).DoAndReturn(captureReport(&got, true))

	svc, err := NewWatchdogService(WatchdogServiceOptions{
		Source:   source,
		Notifier: notifier,
		Clock:    core.NewFixedClock(evalTime),
		Subject:  "[prod] Failed batch jobs report",
	})
	require.NoError(t, err)
	svc.RunOnce(context.Background())

	assert.Equal(t, "[prod] Failed batch jobs report", got.Subject)
}

func TestRunOnce_ServerErrorSendsOneEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	source, err := preferences.NewClient(preferences.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	var emails []notify.Report
	notifier := failurenotifier.NewService(failurenotifier.Options{
		Primary: failurenotifier.SinkRegistration{Name: "email", Sink: notify.SinkFunc(func(_ context.Context, r notify.Report) error {
			emails = append(emails, r)
			return nil
		})},
	})

	res := newWatchdog(t, source, notifier, nil).RunOnce(context.Background())

	require.Len(t, emails, 1)
	assert.True(t, res.Notified)
	assert.Equal(t, "fetch_status", res.ErrorClass)
	lines := emails[0].Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "REST call did not return any data."))
}
