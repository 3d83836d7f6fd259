package main

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/target/batchwatch/internal/bootstrap"
	"github.com/target/batchwatch/internal/domain/staleness"
	"github.com/target/batchwatch/internal/observability/notify"
)

const testExplanation = "This is a delivery test from batchwatch-admin; no action is required."

type sendTestOptions struct {
	Subject string
}

func parseSendTestFlags(args []string) (sendTestOptions, error) {
	fs := flag.NewFlagSet("send-test", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := sendTestOptions{}
	fs.StringVar(&opts.Subject, "subject", "[test] "+notify.DefaultSubject, "Subject used for the test email")

	if err := fs.Parse(args); err != nil {
		return sendTestOptions{}, err
	}
	return opts, nil
}

func testReport(subject string, now time.Time) notify.Report {
	report := notify.NewReport(uuid.New(), now, []staleness.FailureReason{{
		Title:       "batchwatch delivery test",
		Kind:        staleness.KindDisabled,
		Explanation: testExplanation,
	}})
	if subject != "" {
		report.Subject = subject
	}
	return report
}

func runSendTest(cmdCtx *commandContext, args []string) error {
	opts, err := parseSendTestFlags(args)
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

	report := testReport(opts.Subject, time.Now())
	if !services.Notifier.NotifyReport(cmdCtx.Ctx, report) {
		return errors.New("email sink did not accept the test report; see logs for details")
	}
	return writef(cmdCtx.Out, "Test report %s sent.\n", report.RunID)
}
