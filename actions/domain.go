package actions

import (
	"context"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// ConfigureDomain binds (or rebinds) a domain to the running install and
// optionally enables HTTPS. The port is taken from the installed unit.
func (o *Orchestrator) ConfigureDomain(ctx context.Context) (*domain.Outcome, error) {
	outcome := domain.NewOutcome("domain", o.State())
	log := helpers.WithRun(o.Log, outcome.Workflow)

	err := o.runDomain(ctx, outcome)
	o.report(log, outcome)
	return outcome, err
}

func (o *Orchestrator) runDomain(ctx context.Context, outcome *domain.Outcome) error {
	if err := o.requireInstalled(outcome); err != nil {
		return err
	}
	dep := o.deployment()
	o.Console.Info("The application listens on port %d.", dep.Port)

	s, err := o.askSite(dep, true)
	if err != nil {
		return outcome.Fail(err)
	}

	if err := o.bind(ctx, outcome, s, dep.Port); err != nil {
		return err
	}

	dep.Domain, dep.TLS, dep.Email = s.Domain, s.TLS, s.Email
	if err := o.record(outcome, dep); err != nil {
		return err
	}

	outcome.Finish(domain.Installed)
	o.printAccess(dep)
	return nil
}
