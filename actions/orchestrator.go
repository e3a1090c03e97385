// Package actions sequences the installer components into the operator
// workflows: install, update, domain, uninstall and the supervisory commands.
package actions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/config"
	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

var (
	domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*\.)+[a-zA-Z]{2,}$`)
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// TaskRunner exposes the individual dependency tasks.
type TaskRunner interface {
	TaskNames() []string
	RunTask(ctx context.Context, name string) error
}

// Orchestrator holds the components a workflow drives. Cross-step data
// (port, domain, email) travels in explicit request values, never here.
type Orchestrator struct {
	Settings config.Settings
	Deps     domain.DependencyInstaller
	Tasks    TaskRunner
	Fetcher  domain.ArtifactFetcher
	Service  domain.ServiceManager
	Proxy    domain.ProxyManager
	Certs    domain.CertificateAgent
	Store    *config.StateStore
	Prompt   Prompter
	Console  *helpers.Console
	Log      zerolog.Logger
	Now      func() time.Time
}

// IsRecoverable reports whether err should send the operator back to the
// menu instead of terminating the process.
func IsRecoverable(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrAborted) ||
		errors.Is(err, domain.ErrNotInstalled)
}

// State derives the install state from the presence of the install
// directory.
func (o *Orchestrator) State() domain.InstallState {
	if utils.DirExists(o.Settings.InstallDir) {
		return domain.Installed
	}
	return domain.NotInstalled
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// deployment returns the recorded deployment, or one rebuilt from the unit
// file for installs that predate the state file.
func (o *Orchestrator) deployment() domain.Deployment {
	dep, ok, err := o.Store.Load()
	if err != nil {
		o.Log.Warn().Err(err).Msg("state file unreadable, rebuilding")
	}
	if !ok || err != nil {
		dep = domain.Deployment{InstallDir: o.Settings.InstallDir}
	}
	dep.InstallDir = o.Settings.InstallDir
	dep.Port = o.currentPort(dep.Port)
	return dep
}

// currentPort reads the port from the service unit, falling back to the
// recorded port and then to the default.
func (o *Orchestrator) currentPort(recorded int) int {
	port, err := o.Service.ConfiguredPort()
	if err == nil && port > 0 {
		return port
	}
	o.Log.Debug().Err(err).Msg("port not readable from unit")
	if recorded > 0 {
		return recorded
	}
	return o.Settings.DefaultPort
}

func (o *Orchestrator) requireInstalled(outcome *domain.Outcome) error {
	if o.State() == domain.Installed {
		return nil
	}
	return outcome.Fail(fmt.Errorf("%w: %s does not exist, run install first", domain.ErrNotInstalled, o.Settings.InstallDir))
}

func (o *Orchestrator) askPort(def int) (int, error) {
	answer := strings.TrimSpace(o.Prompt.Prompt("Port for the web interface", strconv.Itoa(def)))
	if answer == "" {
		return def, nil
	}
	port, err := strconv.Atoi(answer)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port must be a number between 1 and 65535, got %q", domain.ErrInvalidInput, answer)
	}
	return port, nil
}

func (o *Orchestrator) askDomain(def string) (string, error) {
	answer := strings.ToLower(strings.TrimSpace(o.Prompt.Prompt("Domain name (e.g. qb.example.com)", def)))
	if answer == "" {
		return "", fmt.Errorf("%w: domain cannot be empty", domain.ErrInvalidInput)
	}
	if !domainRegex.MatchString(answer) {
		return "", fmt.Errorf("%w: invalid domain %q", domain.ErrInvalidInput, answer)
	}
	return answer, nil
}

func (o *Orchestrator) askEmail(def string) (string, error) {
	answer := strings.TrimSpace(o.Prompt.Prompt("Email for Let's Encrypt notices", def))
	if answer == "" {
		return "", fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
	}
	if !emailRegex.MatchString(answer) {
		return "", fmt.Errorf("%w: invalid email %q", domain.ErrInvalidInput, answer)
	}
	return answer, nil
}

// askSite collects the optional domain/TLS/email triple. wantDomain skips
// the bind question when the caller already knows a domain is wanted.
func (o *Orchestrator) askSite(prev domain.Deployment, wantDomain bool) (site, error) {
	var s site
	if !wantDomain && !o.Prompt.YN("Bind a domain name?", prev.Domain != "") {
		return s, nil
	}
	var err error
	if s.Domain, err = o.askDomain(prev.Domain); err != nil {
		return s, err
	}
	s.TLS = o.Prompt.YN("Enable HTTPS with Let's Encrypt?", true)
	if s.TLS {
		if s.Email, err = o.askEmail(prev.Email); err != nil {
			return s, err
		}
	}
	return s, nil
}

type site struct {
	Domain string
	TLS    bool
	Email  string
}

// bind configures the proxy and, when requested, the certificate. The
// certificate is only requested once the proxy is serving the domain.
func (o *Orchestrator) bind(ctx context.Context, outcome *domain.Outcome, s site, port int) error {
	if s.Domain == "" {
		outcome.Skip("proxy", "no domain")
		outcome.Skip("certificate", "no domain")
		return nil
	}

	o.Console.Step("Configuring nginx for %s", s.Domain)
	if err := outcome.Do("proxy", func() error { return o.Proxy.Configure(ctx, s.Domain, port) }); err != nil {
		return err
	}

	if !s.TLS {
		outcome.Skip("certificate", "https not requested")
		return nil
	}
	o.Console.Step("Requesting a certificate for %s", s.Domain)
	return outcome.Do("certificate", func() error { return o.Certs.Provision(ctx, s.Domain, s.Email) })
}

func (o *Orchestrator) start(ctx context.Context, outcome *domain.Outcome) error {
	o.Console.Step("Starting %s", o.Settings.ServiceName)
	return outcome.Do("start", func() error { return o.Service.Start(ctx) })
}

func (o *Orchestrator) record(outcome *domain.Outcome, dep domain.Deployment) error {
	return outcome.Do("record", func() error { return o.Store.Save(dep) })
}

// report logs the outcome and prints a failure summary naming the steps
// that had already been applied.
func (o *Orchestrator) report(log zerolog.Logger, outcome *domain.Outcome) {
	event := log.Info()
	if outcome.Err != nil {
		event = log.Error().Err(outcome.Err)
	}
	event.Str("from", outcome.From.String()).
		Str("to", outcome.To.String()).
		Strs("completed", outcome.Completed()).
		Msg(outcome.Workflow)

	if outcome.Err != nil && !IsRecoverable(outcome.Err) {
		if done := outcome.Completed(); len(done) > 0 {
			o.Console.Info("Completed before the failure: %s", strings.Join(done, ", "))
		}
	}
}

func (o *Orchestrator) printAccess(dep domain.Deployment) {
	o.Console.Success("qBit Smart Web Manager is available at %s", dep.AccessURL())
	if dep.Domain == "" {
		o.Console.Info("Replace %s with the public address of this server.", domain.PublicAddressPlaceholder)
	}
}
