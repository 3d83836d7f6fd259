package notify

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/batchwatch/internal/domain/staleness"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Failed batch jobs report"

const (
	reportHeader = "Failed batch jobs report:"
	reportFooter = "Please ensure to take necessary steps."
)

// Report is the aggregated result of one watchdog run. Sinks receive at most
// one Report per run.
type Report struct {
	RunID       uuid.UUID
	Subject     string
	GeneratedAt time.Time
	Reasons     []staleness.FailureReason
}

// NewReport builds a report for the given run.
func NewReport(runID uuid.UUID, generatedAt time.Time, reasons []staleness.FailureReason) Report {
	return Report{
		RunID:       runID,
		Subject:     DefaultSubject,
		GeneratedAt: generatedAt,
		Reasons:     reasons,
	}
}

// Empty reports whether there is nothing to send.
func (r Report) Empty() bool {
	return len(r.Reasons) == 0
}

// NoDataOnly reports whether the only reason is the synthetic no-data line.
func (r Report) NoDataOnly() bool {
	return len(r.Reasons) == 1 && r.Reasons[0].Synthetic()
}

// Severity is critical when the source gave no data, warning otherwise.
func (r Report) Severity() string {
	for _, reason := range r.Reasons {
		if reason.Synthetic() {
			return SeverityCritical
		}
	}
	return SeverityWarning
}

// Lines renders one plain-text line per reason, in report order.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		lines = append(lines, LineText(reason))
	}
	return lines
}

// LineText renders a single reason. Job lines read "title - explanation;",
// the synthetic line is the explanation alone.
func LineText(reason staleness.FailureReason) string {
	if reason.Title == "" {
		return reason.Explanation
	}
	return reason.Title + " - " + reason.Explanation + ";"
}

// HTML renders the report body for email. Every reason sits on its own
// <br>-separated line and user-supplied text is escaped.
func (r Report) HTML() string {
	var b strings.Builder
	b.WriteString(reportHeader)
	b.WriteString("<br>")
	for _, line := range r.Lines() {
		b.WriteString("<br>")
		b.WriteString(html.EscapeString(line))
	}
	b.WriteString("<br><br>")
	b.WriteString(reportFooter)
	return b.String()
}

// Text renders the report body as plain text.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString(reportHeader)
	b.WriteByte('\n')
	for _, line := range r.Lines() {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n\n")
	b.WriteString(reportFooter)
	return b.String()
}

// Sink describes a destination capable of consuming a report.
type Sink interface {
	SendReport(ctx context.Context, report Report) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, report Report) error

// SendReport implements the Sink interface.
func (f SinkFunc) SendReport(ctx context.Context, report Report) error {
	if f == nil {
		return nil
	}
	return f(ctx, report)
}
