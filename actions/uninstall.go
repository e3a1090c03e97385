package actions

import (
	"context"
	"fmt"
	"os"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

// Uninstall removes the service and the nginx site after a first
// confirmation. The install directory and its database are only deleted on
// a second confirmation, after a backup archive has been written.
func (o *Orchestrator) Uninstall(ctx context.Context) (*domain.Outcome, error) {
	outcome := domain.NewOutcome("uninstall", o.State())
	log := helpers.WithRun(o.Log, outcome.Workflow)

	err := o.runUninstall(ctx, outcome)
	o.report(log, outcome)
	return outcome, err
}

func (o *Orchestrator) runUninstall(ctx context.Context, outcome *domain.Outcome) error {
	if o.State() == domain.NotInstalled && !utils.FileExists(o.Service.UnitPath()) {
		return outcome.Fail(fmt.Errorf("%w: nothing to remove", domain.ErrNotInstalled))
	}

	o.Console.Warn("This stops qBit Smart Web Manager and removes its service and nginx site.")
	if !o.Prompt.YN("Continue with the uninstall?", false) {
		return outcome.Fail(domain.ErrAborted)
	}

	o.Console.Step("Removing the service")
	if err := outcome.Do("service", func() error { return o.Service.Remove(ctx) }); err != nil {
		return err
	}
	o.Console.Step("Removing the nginx site")
	if err := outcome.Do("proxy", func() error { return o.Proxy.Remove(ctx) }); err != nil {
		return err
	}

	if o.State() == domain.NotInstalled ||
		!o.Prompt.YN(fmt.Sprintf("Also delete %s and the database? This cannot be undone.", o.Settings.InstallDir), false) {
		outcome.Skip("delete-files", "kept by operator")
		// a kept install dir still counts as installed; update or install
		// writes the unit again
		outcome.Finish(o.State())
		o.Console.Success("Service removed. Files kept in %s", o.Settings.InstallDir)
		if outcome.To == domain.Installed {
			o.Console.Info("Run update or install to bring the service back.")
		}
		return nil
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
	if err := outcome.Do("delete-files", func() error { return os.RemoveAll(o.Settings.InstallDir) }); err != nil {
		return err
	}
	if err := outcome.Do("state", o.Store.Delete); err != nil {
		return err
	}

	outcome.Finish(domain.NotInstalled)
	o.Console.Success("qBit Smart Web Manager has been removed.")
	return nil
}
