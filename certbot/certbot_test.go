package certbot

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/domain/domaintest"
	"qbitsmart/qsw/helpers"
)

func newAgent(runner *domaintest.Runner) *Agent {
	return &Agent{
		Runner:       runner,
		RenewalTimer: "certbot.timer",
		Console:      helpers.NewPlainConsole(io.Discard),
		Log:          zerolog.Nop(),
	}
}

func TestProvision(t *testing.T) {
	runner := domaintest.NewRunner()
	require.NoError(t, newAgent(runner).Provision(context.Background(), "qb.example.com", "ops@example.com"))

	assert.Equal(t, []string{
		"certbot --nginx -d qb.example.com --non-interactive --agree-tos -m ops@example.com --redirect",
		"systemctl enable --now certbot.timer",
	}, runner.Lines())
}

func TestProvision_TimerFailureIsAWarning(t *testing.T) {
	runner := domaintest.NewRunner().Fail("systemctl enable --now", "Unit certbot.timer not found.")
	assert.NoError(t, newAgent(runner).Provision(context.Background(), "qb.example.com", "ops@example.com"))
}

func TestProvision_CertbotFailure(t *testing.T) {
	runner := domaintest.NewRunner().Fail("certbot", "Challenge failed for domain qb.example.com")
	err := newAgent(runner).Provision(context.Background(), "qb.example.com", "ops@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Challenge failed")
	assert.False(t, runner.Ran("systemctl"))
}

func TestProvision_RequiresEmail(t *testing.T) {
	runner := domaintest.NewRunner()
	err := newAgent(runner).Provision(context.Background(), "qb.example.com", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, runner.Lines())
}

func TestProvision_MissingCertbot(t *testing.T) {
	runner := domaintest.NewRunner()
	runner.Missing["certbot"] = true
	err := newAgent(runner).Provision(context.Background(), "qb.example.com", "ops@example.com")
	assert.ErrorIs(t, err, domain.ErrInstallerMissing)
}
