// Package scheduler runs the watchdog on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/target/batchwatch/internal/service"
)

// Watchdog is the unit of work triggered on every tick.
type Watchdog interface {
	RunOnce(ctx context.Context) service.RunResult
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Watchdog Watchdog
	// Schedule is a 5- or 6-field cron expression or a descriptor such as
	// "@hourly" or "@every 30m".
	Schedule   string
	RunOnStart bool
	Location   *time.Location
	Logger     *slog.Logger
}

// Runner triggers the watchdog on its schedule, skipping ticks while a
// previous invocation is still running.
type Runner struct {
	watchdog   Watchdog
	spec       string
	schedule   cron.Schedule
	runOnStart bool
	location   *time.Location
	logger     *slog.Logger
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a schedule expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule is required")
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Watchdog == nil {
		return nil, errors.New("watchdog is required")
	}
	sched, err := ParseSchedule(opts.Schedule)
	if err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		watchdog:   opts.Watchdog,
		spec:       strings.TrimSpace(opts.Schedule),
		schedule:   sched,
		runOnStart: opts.RunOnStart,
		location:   loc,
		logger:     logger.With("component", "scheduler"),
	}, nil
}

// Next returns the first activation after t.
func (r *Runner) Next(t time.Time) time.Time {
	return r.schedule.Next(t.In(r.location))
}

// Run starts the cron loop and blocks until ctx is cancelled. It then waits
// for an in-flight invocation to finish; invocations are detached from ctx
// cancellation so a shutdown never turns into a spurious no-data report.
func (r *Runner) Run(ctx context.Context) error {
	clog := cronLogger{logger: r.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(r.location),
		cron.WithLogger(clog),
	)

	runCtx := context.WithoutCancel(ctx)
	job := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).Then(cron.FuncJob(func() {
		r.watchdog.RunOnce(runCtx)
	}))
	c.Schedule(r.schedule, job)

	r.logger.InfoContext(ctx, "starting scheduler runner",
		"schedule", r.spec,
		"location", r.location.String(),
		"next_run", r.Next(time.Now()).Format(time.RFC3339),
		"run_on_start", r.runOnStart,
	)
	c.Start()

	var startup sync.WaitGroup
	if r.runOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	r.logger.Info("scheduler runner stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	startup.Wait()

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		l.logger.Warn("skipping tick; previous watchdog run still in progress", keysAndValues...)
		return
	}
	l.logger.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron "+msg, append(keysAndValues, "error", err)...)
}
