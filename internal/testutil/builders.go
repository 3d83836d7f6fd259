// Package testutil provides testing utilities and helpers for batchwatch.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/target/batchwatch/internal/domain/model"
)

// PreferenceBuilder provides a fluent interface for building JobPreference
// values for testing.
type PreferenceBuilder struct {
	pref model.JobPreference
}

// NewPreference creates a PreferenceBuilder for an enabled hourly job that
// finished at TestTime.
func NewPreference(title string) *PreferenceBuilder {
	return &PreferenceBuilder{
		pref: model.JobPreference{
			Title:                 title,
			Enabled:               true,
			LastRunAt:             model.RanAt(TestTime()),
			IntervalMinutes:       60,
			ApproxDurationMinutes: 5,
		},
	}
}

// Disabled turns the job off.
func (b *PreferenceBuilder) Disabled() *PreferenceBuilder {
	b.pref.Enabled = false
	return b
}

// NeverRun clears the last run date.
func (b *PreferenceBuilder) NeverRun() *PreferenceBuilder {
	b.pref.LastRunAt = model.NeverRun
	return b
}

// WithLastRun sets the last completion timestamp.
func (b *PreferenceBuilder) WithLastRun(t time.Time) *PreferenceBuilder {
	b.pref.LastRunAt = model.RanAt(t)
	return b
}

// WithLastRunAgo sets the last completion relative to TestTime.
func (b *PreferenceBuilder) WithLastRunAgo(d time.Duration) *PreferenceBuilder {
	b.pref.LastRunAt = model.RanAt(TestTime().Add(-d))
	return b
}

// WithInterval sets the run frequency in minutes.
func (b *PreferenceBuilder) WithInterval(minutes int) *PreferenceBuilder {
	b.pref.IntervalMinutes = minutes
	return b
}

// WithDuration sets the approximate run time in minutes.
func (b *PreferenceBuilder) WithDuration(minutes int) *PreferenceBuilder {
	b.pref.ApproxDurationMinutes = minutes
	return b
}

// Build returns the constructed JobPreference.
func (b *PreferenceBuilder) Build() model.JobPreference {
	return b.pref
}

// wireRecord mirrors the preferences service payload.
type wireRecord struct {
	PreferenceTitle   string  `json:"PreferenceTitle"`
	IsOn              bool    `json:"IsOn"`
	LastRunDate       *string `json:"LastRunDate"`
	BatchRunFrequency int     `json:"BatchRunFrequency"`
	AproxBatchRunTime int     `json:"AproxBatchRunTime"`
}

// PreferencesJSON renders prefs the way the preferences service publishes
// them. Never-run jobs are encoded with a null LastRunDate.
func PreferencesJSON(prefs ...model.JobPreference) []byte {
	records := make([]wireRecord, 0, len(prefs))
	for _, p := range prefs {
		rec := wireRecord{
			PreferenceTitle:   p.Title,
			IsOn:              p.Enabled,
			BatchRunFrequency: p.IntervalMinutes,
			AproxBatchRunTime: p.ApproxDurationMinutes,
		}
		if !p.LastRunAt.Never() {
			ts := p.LastRunAt.Time().UTC().Format(time.RFC3339)
			rec.LastRunDate = &ts
		}
		records = append(records, rec)
	}
	data, err := json.Marshal(records)
	if err != nil {
		panic(err)
	}
	return data
}
