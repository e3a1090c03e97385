package actions

import (
	"context"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// Restart restarts the service and checks it stays up.
func (o *Orchestrator) Restart(ctx context.Context) (*domain.Outcome, error) {
	outcome := domain.NewOutcome("restart", o.State())
	log := helpers.WithRun(o.Log, outcome.Workflow)

	err := o.requireInstalled(outcome)
	if err == nil {
		err = o.start(ctx, outcome)
	}
	if err == nil {
		outcome.Finish(domain.Installed)
		o.Console.Success("%s is running", o.Settings.ServiceName)
	}
	o.report(log, outcome)
	return outcome, err
}

// Logs prints the last lines of the service journal.
func (o *Orchestrator) Logs(ctx context.Context, lines int) error {
	if lines <= 0 {
		lines = 50
	}
	out, err := o.Service.Logs(ctx, lines)
	if err != nil {
		return err
	}
	o.Console.Printf("%s", out)
	return nil
}
