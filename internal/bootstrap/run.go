package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/batchwatch/config"
	"github.com/target/batchwatch/internal/adapters/scheduler"
)

// RunConfig groups what RunWithShutdown needs.
type RunConfig struct {
	Watchdog scheduler.Watchdog
	Config   config.WatchdogConfig
	Logger   *slog.Logger
}

// RunWithShutdown runs the watchdog in the configured mode. In scheduler mode
// it blocks until SIGINT/SIGTERM or ctx cancellation, then waits for an
// in-flight run to finish.
func RunWithShutdown(ctx context.Context, cfg RunConfig) error {
	if cfg.Watchdog == nil {
		return errors.New("watchdog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config.Mode == config.RunModeOnce {
		res := cfg.Watchdog.RunOnce(ctx)
		logger.InfoContext(ctx, "single run complete",
			"run_id", res.RunID.String(),
			"result", res.Result(),
		)
		return nil
	}

	loc, err := cfg.Config.Location()
	if err != nil {
		return err
	}
	runner, err := scheduler.NewRunner(scheduler.RunnerOptions{
		Watchdog:   cfg.Watchdog,
		Schedule:   cfg.Config.Schedule,
		RunOnStart: cfg.Config.RunOnStart,
		Location:   loc,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		waitForSignal(gctx, cancel, logger)
		return nil
	})
	return g.Wait()
}

// waitForSignal cancels the run context on SIGINT/SIGTERM.
func waitForSignal(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutting down watchdog", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}
}
