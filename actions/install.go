package actions

import (
	"context"
	"fmt"
	"strconv"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// InstallRequest is everything the install workflow needs from the operator.
type InstallRequest struct {
	Port   int
	Domain string
	TLS    bool
	Email  string
}

// Install asks for the deployment parameters, shows a summary and, once
// confirmed, installs the application. force re-runs dependency tasks that
// are otherwise skipped when up to date.
func (o *Orchestrator) Install(ctx context.Context, force bool) (*domain.Outcome, error) {
	from := o.State()
	outcome := domain.NewOutcome("install", from)
	log := helpers.WithRun(o.Log, outcome.Workflow)

	req, err := o.collectInstall(from)
	if err != nil {
		outcome.Fail(err)
		o.report(log, outcome)
		return outcome, err
	}

	err = o.runInstall(ctx, outcome, req, force)
	o.report(log, outcome)
	return outcome, err
}

func (o *Orchestrator) collectInstall(from domain.InstallState) (InstallRequest, error) {
	var req InstallRequest
	prev := o.deployment()

	if from == domain.Installed {
		o.Console.Warn("An installation already exists in %s.", o.Settings.InstallDir)
		if !o.Prompt.YN("Reinstall? Your database is kept.", false) {
			return req, domain.ErrAborted
		}
	}

	var err error
	if req.Port, err = o.askPort(prev.Port); err != nil {
		return req, err
	}
	s, err := o.askSite(prev, false)
	if err != nil {
		return req, err
	}
	req.Domain, req.TLS, req.Email = s.Domain, s.TLS, s.Email

	o.Console.Println(box("Installation summary", []field{
		{"Directory", o.Settings.InstallDir},
		{"Port", strconv.Itoa(req.Port)},
		{"Domain", orNone(req.Domain)},
		{"HTTPS", yesNo(req.TLS)},
		{"Email", orNone(req.Email)},
		{"Source", o.Settings.Upstream.Repo},
	}))
	if !o.Prompt.YN("Proceed with the installation?", false) {
		return req, domain.ErrAborted
	}
	return req, nil
}

// runInstall performs the install transition for an already validated
// request.
func (o *Orchestrator) runInstall(ctx context.Context, outcome *domain.Outcome, req InstallRequest, force bool) error {
	if req.Port < 1 || req.Port > 65535 {
		return outcome.Fail(fmt.Errorf("%w: port %d", domain.ErrInvalidInput, req.Port))
	}
	if req.TLS && (req.Domain == "" || req.Email == "") {
		return outcome.Fail(fmt.Errorf("%w: https needs a domain and an email", domain.ErrInvalidInput))
	}
	prev, hadState, err := o.Store.Load()
	if err != nil {
		o.Log.Warn().Err(err).Str("path", o.Store.Path).Msg("state file unreadable")
		o.Console.Warn("Cannot read %s (%v): a site left by a previous domain is not removed.", o.Store.Path, err)
	}

	o.Console.Step("Installing system and Python dependencies")
	if err := outcome.Do("dependencies", func() error { return o.Deps.InstallDependencies(ctx, force) }); err != nil {
		return err
	}

	o.Console.Step("Downloading qBit Smart Web Manager")
	var artifact domain.Artifact
	if err := outcome.Do("fetch", func() (err error) {
		artifact, err = o.Fetcher.Fetch(ctx)
		return err
	}); err != nil {
		return err
	}
	if len(artifact.Preserved) > 0 {
		o.Console.Info("Kept existing %v", artifact.Preserved)
	}

	o.Console.Step("Writing the service unit")
	if err := outcome.Do("service-unit", func() error { return o.Service.WriteUnit(ctx, req.Port) }); err != nil {
		return err
	}

	s := site{Domain: req.Domain, TLS: req.TLS, Email: req.Email}
	if s.Domain == "" && hadState && prev.Domain != "" {
		o.Console.Step("Removing the nginx site for %s", prev.Domain)
		if err := outcome.Do("proxy", func() error { return o.Proxy.Remove(ctx) }); err != nil {
			return err
		}
		outcome.Skip("certificate", "no domain")
	} else if err := o.bind(ctx, outcome, s, req.Port); err != nil {
		return err
	}

	now := o.now()
	dep := domain.Deployment{
		InstallDir:  o.Settings.InstallDir,
		Port:        req.Port,
		Domain:      req.Domain,
		TLS:         req.TLS,
		Email:       req.Email,
		Version:     artifact.Version,
		InstalledAt: now,
		UpdatedAt:   now,
	}
	if err := o.record(outcome, dep); err != nil {
		return err
	}

	if err := o.start(ctx, outcome); err != nil {
		return err
	}

	outcome.Finish(domain.Installed)
	o.printAccess(dep)
	return nil
}
