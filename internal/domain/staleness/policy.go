// Package staleness decides which batch jobs belong in a failed batch jobs report.
//
// The policy is pure: callers capture "now" once per invocation and pass it
// in, so every record of one run is judged against the same instant.
package staleness

import (
	"math"
	"time"

	"github.com/target/batchwatch/internal/domain/model"
)

// Kind classifies why a job was reported.
type Kind string

const (
	// KindDisabled marks a tracked job whose preference is switched off.
	KindDisabled Kind = "disabled"
	// KindNeverRun marks an enabled job with no recorded run.
	KindNeverRun Kind = "never_run"
	// KindOverdue marks an enabled job whose last run is older than its window.
	KindOverdue Kind = "overdue"
	// KindNoData marks the synthetic reason used when the source returned nothing.
	KindNoData Kind = "no_data"
)

const (
	explanationDisabled = "AdminPreference is turned off, it will be included in this report as a reminder. " +
		"If you wish to exclude it an application administrator needs to mark it as not a batch job"
	explanationNeverRun = "has not run at least once yet but it is marked to be included in this report, " +
		"it should be excluded by application administrator until it is confirmed to be working properly"
	explanationOverdue = "has been running longer than expected or didn't run at all"
	explanationNoData  = "REST call did not return any data. " +
		"If there are no batch jobs set in the application this reporting function should be turned off. " +
		"If there are batch jobs set in the application that means there is something wrong with the REST connection."
)

// FailureReason is one line of the report.
// Title is empty for the synthetic no-data reason.
type FailureReason struct {
	Title       string
	Kind        Kind
	Explanation string
}

// Synthetic reports whether the reason was generated without a job record.
func (r FailureReason) Synthetic() bool {
	return r.Kind == KindNoData
}

// Window returns how long after its last completion a job may stay silent:
// the interval plus twice the approximate duration. The last run date is
// written when a run completes and overlapping runs are skipped, so one full
// worst-case run plus the same again as margin must fit before the job counts
// as late. Negative settings count as zero and the result saturates at
// MaxWindow.
func Window(pref model.JobPreference) time.Duration {
	interval := clampMinutes(pref.IntervalMinutes)
	duration := clampMinutes(pref.ApproxDurationMinutes)
	return time.Duration(min(interval+2*duration, maxWindowMinutes)) * time.Minute
}

// MaxWindow is the largest window Window returns, roughly 292 years.
const MaxWindow = time.Duration(maxWindowMinutes) * time.Minute

const maxWindowMinutes = int64(math.MaxInt64 / int64(time.Minute))

func clampMinutes(v int) int64 {
	return min(max(int64(v), 0), maxWindowMinutes)
}

// Overdue reports whether an enabled job that has run before missed its window.
// A job exactly at the edge of its window is not overdue.
func Overdue(pref model.JobPreference, now time.Time) bool {
	if pref.LastRunAt.Never() {
		return false
	}
	return now.Sub(pref.LastRunAt.Time()) > Window(pref)
}

// Check evaluates a single preference. ok is false when the job is healthy.
func Check(pref model.JobPreference, now time.Time) (FailureReason, bool) {
	switch {
	case !pref.Enabled:
		return FailureReason{Title: pref.Title, Kind: KindDisabled, Explanation: explanationDisabled}, true
	case pref.LastRunAt.Never():
		return FailureReason{Title: pref.Title, Kind: KindNeverRun, Explanation: explanationNeverRun}, true
	case Overdue(pref, now):
		return FailureReason{Title: pref.Title, Kind: KindOverdue, Explanation: explanationOverdue}, true
	default:
		return FailureReason{}, false
	}
}

// Evaluate returns the failure reasons for prefs in input order.
// Each preference contributes at most one reason.
func Evaluate(prefs []model.JobPreference, now time.Time) []FailureReason {
	var reasons []FailureReason
	for _, pref := range prefs {
		if reason, ok := Check(pref, now); ok {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

// NoData returns the synthetic reason for a fetch that produced no records.
// It cannot tell "no jobs configured" from "broken connection" and says so.
func NoData() FailureReason {
	return FailureReason{Kind: KindNoData, Explanation: explanationNoData}
}
