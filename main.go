package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jawher/mow.cli"
	"github.com/rs/zerolog"

	"qbitsmart/qsw/actions"
	"qbitsmart/qsw/certbot"
	"qbitsmart/qsw/config"
	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/fetcher"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/nginx"
	"qbitsmart/qsw/probe"
	"qbitsmart/qsw/systemd"
	"qbitsmart/qsw/tasks"
)

const version = "1.0.0"

// environment is what every command needs before it can build an
// orchestrator.
type environment struct {
	settings config.Settings
	console  *helpers.Console
	log      zerolog.Logger
	closeLog func() error
}

func main() {

	app := cli.App("qsw", "Install and manage the qBit Smart Web Manager")

	app.Version("V version", "qsw "+version)

	configPath := app.String(cli.StringOpt{
		Name:   "c config",
		Value:  "",
		Desc:   "Settings file (default " + config.DefaultFilename + ")",
		EnvVar: config.EnvConfigPath,
	})
	verbose := app.BoolOpt("v verbose", false, "Print debug logs to stderr")

	env := &environment{console: helpers.NewConsole(), closeLog: func() error { return nil }}

	app.Before = func() {
		settings, err := config.Load(config.Path(*configPath))
		if err != nil {
			env.console.Fail("%v", err)
			cli.Exit(1)
		}
		env.settings = settings
		env.log, env.closeLog = helpers.NewLogger(settings.LogFile, *verbose, env.console)
		env.log.Debug().Str("config", config.Path(*configPath)).Msg("settings loaded")
	}

	app.After = func() {
		_ = env.closeLog()
	}

	app.Action = func() {
		if !helpers.Interactive() {
			env.console.Fail("The menu needs a terminal. Run 'qsw --help' to list the commands.")
			cli.Exit(1)
		}
		env.run(func(ctx context.Context, o *actions.Orchestrator) error {
			return o.Menu(ctx)
		})
	}

	app.Command("install", "Install the web manager (asks for port, domain and HTTPS)", func(cmd *cli.Cmd) {

		forced := cmd.BoolOpt("f force", false, "Re-run dependency tasks even when up to date")

		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Install(ctx, *forced)
				return err
			})
		}
	})

	app.Command("update", "Download the latest version and restart the service", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Update(ctx)
				return err
			})
		}
	})

	app.Command("uninstall", "Remove the service, the nginx site and optionally the files", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Uninstall(ctx)
				return err
			})
		}
	})

	app.Command("status", "Show the state of the installation", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				return o.Status(ctx)
			})
		}
	})

	app.Command("domain", "Bind a domain and optionally enable HTTPS", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.ConfigureDomain(ctx)
				return err
			})
		}
	})

	app.Command("restart", "Restart the service", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Restart(ctx)
				return err
			})
		}
	})

	app.Command("logs", "Display the service logs", func(cmd *cli.Cmd) {

		cmd.Spec = "[-n]"
		lines := cmd.IntOpt("n lines", 50, "Number of journal lines")

		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				return o.Logs(ctx, *lines)
			})
		}
	})

	app.Command("backup", "Archive the database and the deployment record", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Backup(ctx)
				return err
			})
		}
	})

	app.Command("restore", "Restore the database from a backup archive", func(cmd *cli.Cmd) {

		cmd.Spec = "ARCHIVE"
		archive := cmd.StringArg("ARCHIVE", "", "Archive created by 'qsw backup'")

		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				_, err := o.Restore(ctx, *archive)
				return err
			})
		}
	})

	app.Command("tasks", "List the dependency tasks", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			env.run(func(_ context.Context, o *actions.Orchestrator) error {
				o.ListTasks()
				return nil
			})
		}
	})

	app.Command("run", "Execute a dependency task", func(cmd *cli.Cmd) {

		cmd.Spec = "TASK"
		taskName := cmd.StringArg("TASK", "", "Execute the specified task. Run 'qsw tasks' to get the list of the tasks")

		cmd.Action = func() {
			env.run(func(ctx context.Context, o *actions.Orchestrator) error {
				return o.RunTask(ctx, *taskName)
			})
		}
	})

	app.Command("version", "Print the version", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			fmt.Println("qsw " + version)
		}
	})

	app.Run(os.Args)
}

// run builds the orchestrator and executes fn. Precondition failures and
// fatal workflow errors terminate the process with status 1.
func (env *environment) run(fn func(ctx context.Context, o *actions.Orchestrator) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := env.orchestrator()
	if err == nil {
		err = fn(ctx, o)
	}
	if err == nil {
		return
	}

	if errors.Is(err, domain.ErrAborted) {
		env.console.Warn("%v", err)
		return
	}
	env.console.Fail("%v", err)
	env.log.Error().Err(err).Msg("command failed")
	stop()
	_ = env.closeLog()
	cli.Exit(1)
}

func (env *environment) orchestrator() (*actions.Orchestrator, error) {
	if err := probe.RequireRoot(os.Geteuid()); err != nil {
		return nil, err
	}

	runner := helpers.NewExecRunner(env.log)
	profile, err := probe.Detect(env.settings.OSRelease, runner.LookPath)
	if err != nil {
		return nil, err
	}
	env.log.Info().Str("os", profile.OSID).Str("package_manager", profile.Binary()).Msg("environment detected")

	s := env.settings
	installer := &tasks.Installer{
		Runner:         runner,
		Profile:        profile,
		Python:         s.Python,
		PythonPackages: s.PythonPackages,
		StampPath:      tasks.StampPathFor(s.StateFile),
		Console:        env.console,
		Log:            env.log,
	}

	return &actions.Orchestrator{
		Settings: s,
		Deps:     installer,
		Tasks:    installer,
		Fetcher:  fetcher.New(s, env.console, env.log),
		Service:  systemd.New(s, runner, env.console, env.log),
		Proxy:    nginx.New(s, profile, runner, env.console, env.log),
		Certs:    certbot.New(profile, runner, env.console, env.log),
		Store:    config.NewStateStore(s.StateFile),
		Prompt:   actions.TerminalPrompter{},
		Console:  env.console,
		Log:      env.log,
	}, nil
}
