package actions

import (
	"context"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// Update replaces the application tree with the latest upstream version
// and restarts the service on its current port. The preserved files are
// archived before anything is replaced.
func (o *Orchestrator) Update(ctx context.Context) (*domain.Outcome, error) {
	outcome := domain.NewOutcome("update", o.State())
	log := helpers.WithRun(o.Log, outcome.Workflow)

	err := o.runUpdate(ctx, outcome)
	o.report(log, outcome)
	return outcome, err
}

func (o *Orchestrator) runUpdate(ctx context.Context, outcome *domain.Outcome) error {
	if err := o.requireInstalled(outcome); err != nil {
		return err
	}
	dep := o.deployment()

	o.Console.Step("Stopping %s", o.Settings.ServiceName)
	if err := outcome.Do("stop", func() error { return o.Service.Stop(ctx) }); err != nil {
		return err
	}

	if err := outcome.Do("backup", func() error {
		archive, err := o.backup(ctx)
		if archive != "" {
			o.Console.Info("Backup written to %s", archive)
		}
		return err
	}); err != nil {
		return err
	}

	o.Console.Step("Downloading the latest version")
	var artifact domain.Artifact
	if err := outcome.Do("fetch", func() (err error) {
		artifact, err = o.Fetcher.Fetch(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := outcome.Do("service-unit", func() error { return o.Service.WriteUnit(ctx, dep.Port) }); err != nil {
		return err
	}

	dep.Version = artifact.Version
	dep.UpdatedAt = o.now()
	if dep.InstalledAt.IsZero() {
		dep.InstalledAt = dep.UpdatedAt
	}
	if err := o.record(outcome, dep); err != nil {
		return err
	}

	if err := o.start(ctx, outcome); err != nil {
		return err
	}

	outcome.Finish(domain.Installed)
	o.Console.Success("Updated to %s", artifact.Version)
	o.printAccess(dep)
	return nil
}
