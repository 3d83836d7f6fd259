package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/target/batchwatch/internal/bootstrap"
	"github.com/target/batchwatch/internal/domain/model"
	"github.com/target/batchwatch/internal/domain/staleness"
)

const statusOK = "ok"

type checkOptions struct {
	JSON    bool
	Timeout time.Duration
}

// jobStatus is one row of the check output.
type jobStatus struct {
	Title       string    `json:"title"`
	Enabled     bool      `json:"enabled"`
	LastRun     string    `json:"last_run"`
	Window      string    `json:"window"`
	Deadline    time.Time `json:"deadline,omitzero"`
	Status      string    `json:"status"`
	Explanation string    `json:"explanation,omitempty"`
}

func parseCheckFlags(args []string) (checkOptions, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := checkOptions{}
	fs.BoolVar(&opts.JSON, "json", false, "Print statuses as JSON")
	fs.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "Maximum duration to wait for the preferences service")

	if err := fs.Parse(args); err != nil {
		return checkOptions{}, err
	}
	if opts.Timeout <= 0 {
		return checkOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runCheck(cmdCtx *commandContext, args []string) error {
	opts, err := parseCheckFlags(args)
	if err != nil {
		return err
	}

	services, err := bootstrap.NewServices(cmdCtx.Ctx, &bootstrap.ServiceDeps{
		Config: &cmdCtx.Config,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close services", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	prefs, err := services.Source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch preferences from %s: %w", services.Source.Endpoint(), err)
	}

	statuses := buildStatuses(prefs, time.Now())
	if opts.JSON {
		return printStatusesJSON(cmdCtx.Out, statuses)
	}
	return printStatuses(cmdCtx.Out, statuses)
}

func buildStatuses(prefs []model.JobPreference, now time.Time) []jobStatus {
	out := make([]jobStatus, 0, len(prefs))
	for _, pref := range prefs {
		st := jobStatus{
			Title:   pref.Title,
			Enabled: pref.Enabled,
			LastRun: pref.LastRunAt.String(),
			Window:  staleness.Window(pref).String(),
			Status:  statusOK,
		}
		if !pref.LastRunAt.Never() {
			st.Deadline = pref.LastRunAt.Time().Add(staleness.Window(pref)).UTC()
		}
		if reason, flagged := staleness.Check(pref, now); flagged {
			st.Status = string(reason.Kind)
			st.Explanation = reason.Explanation
		}
		out = append(out, st)
	}
	return out
}

func printStatuses(w io.Writer, statuses []jobStatus) error {
	if len(statuses) == 0 {
		return writeln(w, "No batch job preferences returned; the watchdog would report no data.")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JOB\tENABLED\tLAST RUN\tWINDOW\tDEADLINE\tSTATUS"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	flagged := 0
	for _, st := range statuses {
		deadline := "-"
		if !st.Deadline.IsZero() {
			deadline = st.Deadline.Format(time.RFC3339)
		}
		if st.Status != statusOK {
			flagged++
		}
		if err := writef(tw, "%s\t%t\t%s\t%s\t%s\t%s\n",
			st.Title, st.Enabled, st.LastRun, st.Window, deadline, st.Status); err != nil {
			return fmt.Errorf("write row %q: %w", st.Title, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return writef(w, "\n%d of %d jobs would be reported.\n", flagged, len(statuses))
}

func printStatusesJSON(w io.Writer, statuses []jobStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(statuses); err != nil {
		return fmt.Errorf("encode statuses: %w", err)
	}
	return nil
}
