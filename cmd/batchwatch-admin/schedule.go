package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/target/batchwatch/internal/adapters/scheduler"
)

type scheduleOptions struct {
	Count int
}

func parseScheduleFlags(args []string) (scheduleOptions, error) {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := scheduleOptions{}
	fs.IntVar(&opts.Count, "n", 5, "Number of activations to print")

	if err := fs.Parse(args); err != nil {
		return scheduleOptions{}, err
	}
	if opts.Count <= 0 {
		return scheduleOptions{}, errors.New("-n must be greater than zero")
	}
	return opts, nil
}

func runSchedule(cmdCtx *commandContext, args []string) error {
	opts, err := parseScheduleFlags(args)
	if err != nil {
		return err
	}
	loc, err := cmdCtx.Config.Watchdog.Location()
	if err != nil {
		return err
	}
	return printActivations(cmdCtx.Out, cmdCtx.Config.Watchdog.Schedule, loc, time.Now(), opts.Count)
}

func printActivations(w io.Writer, spec string, loc *time.Location, from time.Time, n int) error {
	sched, err := scheduler.ParseSchedule(spec)
	if err != nil {
		return err
	}
	if err := writef(w, "Schedule %q (%s):\n", spec, loc); err != nil {
		return err
	}
	next := from.In(loc)
	for range n {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		if err := writef(w, "  %s\n", next.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}
