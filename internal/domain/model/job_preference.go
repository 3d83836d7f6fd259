package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// IntervalUnit names the unit the preferences service uses for BatchRunFrequency.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type IntervalUnit string

const (
	// IntervalUnitMinutes means BatchRunFrequency is expressed in minutes.
	IntervalUnitMinutes IntervalUnit = "minutes"
	// IntervalUnitHours means BatchRunFrequency is expressed in hours.
	IntervalUnitHours IntervalUnit = "hours"
)

// Valid reports whether the unit is supported.
func (u IntervalUnit) Valid() bool {
	return u == IntervalUnitMinutes || u == IntervalUnitHours
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (u *IntervalUnit) UnmarshalText(text []byte) error {
	v := IntervalUnit(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case "":
		*u = IntervalUnitMinutes
		return nil
	case "minute", "min", "m":
		*u = IntervalUnitMinutes
		return nil
	case "hour", "h":
		*u = IntervalUnitHours
		return nil
	}
	if !v.Valid() {
		return fmt.Errorf("invalid IntervalUnit: %q", v)
	}
	*u = v
	return nil
}

func (u IntervalUnit) toMinutes(v int) int {
	if u != IntervalUnitHours {
		return v
	}
	switch {
	case v > math.MaxInt/60:
		return math.MaxInt
	case v < math.MinInt/60:
		return math.MinInt
	}
	return v * 60
}

// RunTime is the last recorded completion of a batch job.
// The zero value means the job has never run.
type RunTime struct {
	at time.Time
}

// NeverRun is the sentinel for a job without any recorded run.
var NeverRun = RunTime{}

// RanAt builds a RunTime from a real completion timestamp.
// Timestamps at or before year 1 collapse to NeverRun.
func RanAt(t time.Time) RunTime {
	if t.Year() <= 1 {
		return NeverRun
	}
	return RunTime{at: t}
}

// Never reports whether the job has never run.
func (r RunTime) Never() bool {
	return r.at.IsZero()
}

// Time returns the completion timestamp; zero when Never is true.
func (r RunTime) Time() time.Time {
	return r.at
}

// String renders the timestamp for logs.
func (r RunTime) String() string {
	if r.Never() {
		return "never"
	}
	return r.at.UTC().Format(time.RFC3339)
}

// JobPreference is one batch job's schedule and last-known execution as
// published by the preferences service.
type JobPreference struct {
	Title                 string
	Enabled               bool
	LastRunAt             RunTime
	IntervalMinutes       int
	ApproxDurationMinutes int
}

// DecodeOptions controls how raw preference records are interpreted.
type DecodeOptions struct {
	// Location is applied to timestamps without a zone. Defaults to UTC.
	Location *time.Location
	// IntervalUnit converts BatchRunFrequency to minutes. Defaults to minutes.
	IntervalUnit IntervalUnit
}

// ErrInvalidRunTime is returned when LastRunDate holds an unrecognised value.
var ErrInvalidRunTime = errors.New("invalid last run date")

// wirePreference mirrors the preferences service JSON. Keys match
// case-insensitively through encoding/json.
type wirePreference struct {
	PreferenceTitle   string          `json:"PreferenceTitle"`
	IsOn              bool            `json:"IsOn"`
	LastRunDate       json.RawMessage `json:"LastRunDate"`
	BatchRunFrequency int             `json:"BatchRunFrequency"`
	AproxBatchRunTime int             `json:"AproxBatchRunTime"`
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DecodePreferences parses a JSON array of preference records.
func DecodePreferences(data []byte, opts DecodeOptions) ([]JobPreference, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []JobPreference{}, nil
	}

	var wire []wirePreference
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	unit := opts.IntervalUnit
	if !unit.Valid() {
		unit = IntervalUnitMinutes
	}

	out := make([]JobPreference, 0, len(wire))
	for i, w := range wire {
		lastRun, err := parseRunTime(w.LastRunDate, loc)
		if err != nil {
			return nil, fmt.Errorf("preference %d (%q): %w", i, w.PreferenceTitle, err)
		}
		out = append(out, JobPreference{
			Title:                 w.PreferenceTitle,
			Enabled:               w.IsOn,
			LastRunAt:             lastRun,
			IntervalMinutes:       unit.toMinutes(w.BatchRunFrequency),
			ApproxDurationMinutes: w.AproxBatchRunTime,
		})
	}
	return out, nil
}

func parseRunTime(raw json.RawMessage, loc *time.Location) (RunTime, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NeverRun, nil
	}

	if raw[0] != '"' {
		var ms json.Number
		if err := json.Unmarshal(raw, &ms); err != nil {
			return NeverRun, fmt.Errorf("%w: %s", ErrInvalidRunTime, raw)
		}
		v, err := ms.Int64()
		if err != nil {
			return NeverRun, fmt.Errorf("%w: %s", ErrInvalidRunTime, raw)
		}
		return RanAt(time.UnixMilli(v).UTC()), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return NeverRun, fmt.Errorf("%w: %s", ErrInvalidRunTime, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return NeverRun, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return RanAt(t), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return RanAt(t), nil
		}
	}
	return NeverRun, fmt.Errorf("%w: %q", ErrInvalidRunTime, s)
}
