package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// externallyManaged is printed by pip when the distribution forbids
// installing into the system interpreter (PEP 668).
const externallyManaged = "externally-managed-environment"

// Installer implements domain.DependencyInstaller.
type Installer struct {
	Runner         domain.Runner
	Profile        domain.Profile
	Python         string
	PythonPackages []string
	StampPath      string
	Console        *helpers.Console
	Log            zerolog.Logger
}

func (inst *Installer) InstallDependencies(ctx context.Context, force bool) error {
	for _, name := range InstallTaskNames {
		task, err := CreateTaskWithName(name, inst)
		if err != nil {
			return err
		}
		if force {
			task.ExecutionCheck = nil
		}

		inst.Console.Info("*** %s ***", task.Description)
		executed, err := task.Execute(ctx)
		if err != nil {
			return err
		}
		if executed {
			inst.Log.Info().Str("task", task.Name).Msg("task executed")
		} else {
			inst.Console.Info("Task '%s' skipped (up to date).", task.Name)
			inst.Log.Info().Str("task", task.Name).Msg("task skipped")
		}
	}
	return nil
}

func (inst *Installer) installSystemPackages(ctx context.Context) error {
	bin := inst.Profile.Binary()
	if _, err := inst.Runner.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInstallerMissing, bin)
	}

	if res := inst.Runner.Run(ctx, inst.Profile.RefreshCommand()); !res.OK() {
		inst.Console.Warn("package index refresh failed, continuing: %v", res.Error())
		inst.Log.Warn().Err(res.Error()).Msg("package refresh failed")
	}

	res := inst.Runner.Run(ctx, inst.Profile.InstallCommand(inst.Profile.Packages...))
	if res.OK() {
		return nil
	}
	if helpers.IsNotFound(res) {
		return fmt.Errorf("%w: %s", domain.ErrInstallerMissing, bin)
	}

	// one bad package name fails the whole transaction; retry individually
	// so the rest still gets installed
	inst.Log.Warn().Err(res.Error()).Msg("bulk install failed, retrying per package")
	var failed []string
	for _, pkg := range inst.Profile.Packages {
		if r := inst.Runner.Run(ctx, inst.Profile.InstallCommand(pkg)); !r.OK() {
			failed = append(failed, pkg)
		}
	}
	if len(failed) > 0 {
		inst.Console.Warn("could not install: %s", strings.Join(failed, ", "))
		inst.Log.Warn().Strs("packages", failed).Msg("packages not installed")
	}
	return nil
}

func (inst *Installer) installPythonPackages(ctx context.Context) error {
	if _, err := inst.Runner.LookPath(inst.Python); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInstallerMissing, inst.Python)
	}

	pipArgs := append(domain.CommandArgs{inst.Python, "-m", "pip", "install"}, inst.PythonPackages...)
	res := inst.Runner.Run(ctx, domain.NewStreamingCommand(pipArgs))
	if res.OK() {
		return nil
	}

	if strings.Contains(res.Output, externallyManaged) {
		inst.Console.Warn("pip refused the system interpreter, retrying with --break-system-packages")
		override := append(append(domain.CommandArgs{}, pipArgs...), "--break-system-packages")
		res = inst.Runner.Run(ctx, domain.NewStreamingCommand(override))
		if res.OK() {
			return nil
		}
	}

	inst.Log.Warn().Err(res.Error()).Msg("pip module install failed, trying pip3")
	fallback := append(domain.CommandArgs{"pip3", "install"}, inst.PythonPackages...)
	last := inst.Runner.Run(ctx, domain.NewStreamingCommand(fallback))
	if last.OK() {
		return nil
	}
	if helpers.IsNotFound(last) {
		return fmt.Errorf("%w: pip (%v)", domain.ErrInstallerMissing, res.Error())
	}
	return last.Error()
}

// TaskNames lists the tasks InstallDependencies runs.
func (inst *Installer) TaskNames() []string {
	return InstallTaskNames
}

// RunTask executes a single task by name, bypassing its execution check.
func (inst *Installer) RunTask(ctx context.Context, name string) error {
	task, err := CreateTaskWithName(name, inst)
	if err != nil {
		return err
	}
	task.ExecutionCheck = nil

	inst.Console.Info("*** %s ***", task.Description)
	if _, err := task.Execute(ctx); err != nil {
		return err
	}
	inst.Console.Success("Task '%s' executed.", task.Name)
	return nil
}
