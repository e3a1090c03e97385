// Package certbot obtains Let's Encrypt certificates through the nginx
// plugin.
package certbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
)

// Agent implements domain.CertificateAgent.
type Agent struct {
	Runner       domain.Runner
	RenewalTimer string
	Console      *helpers.Console
	Log          zerolog.Logger
}

func New(profile domain.Profile, runner domain.Runner, console *helpers.Console, log zerolog.Logger) *Agent {
	return &Agent{Runner: runner, RenewalTimer: profile.RenewalTimer, Console: console, Log: log}
}

// Provision requests a certificate for host and lets certbot add the HTTPS
// redirect to the existing nginx site. The proxy site must already exist.
func (a *Agent) Provision(ctx context.Context, host, email string) error {
	if strings.TrimSpace(host) == "" || strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: certificate needs a domain and an email", domain.ErrInvalidInput)
	}
	if _, err := a.Runner.LookPath("certbot"); err != nil {
		return fmt.Errorf("%w: certbot", domain.ErrInstallerMissing)
	}

	res := a.Runner.Run(ctx, domain.NewStreamingCommand([]string{
		"certbot", "--nginx",
		"-d", host,
		"--non-interactive",
		"--agree-tos",
		"-m", email,
		"--redirect",
	}))
	if !res.OK() {
		a.Log.Error().Str("domain", host).Str("output", res.Output).Msg("certbot failed")
		return fmt.Errorf("certificate for %s: %w", host, res.Error())
	}
	a.Log.Info().Str("domain", host).Msg("certificate issued")

	if a.RenewalTimer == "" {
		return nil
	}
	if r := a.Runner.Run(ctx, domain.NewCommand([]string{"systemctl", "enable", "--now", a.RenewalTimer})); !r.OK() {
		a.Console.Warn("automatic renewal not enabled (%s): %v", a.RenewalTimer, r.Error())
		a.Log.Warn().Err(r.Error()).Str("timer", a.RenewalTimer).Msg("renewal timer not enabled")
	}
	return nil
}
