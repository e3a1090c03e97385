package systemd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/domain/domaintest"
	"qbitsmart/qsw/helpers"
)

func newManager(t *testing.T, runner *domaintest.Runner) *Manager {
	t.Helper()
	return &Manager{
		Runner:      runner,
		Unit:        "qbit-smart-web.service",
		UnitDir:     t.TempDir(),
		InstallDir:  "/opt/qbit-smart-web",
		Python:      "python3",
		EntryModule: "app.py",
		Console:     helpers.NewPlainConsole(io.Discard),
		Log:         zerolog.Nop(),
	}
}

func TestWriteUnit(t *testing.T) {
	runner := domaintest.NewRunner()
	m := newManager(t, runner)

	require.NoError(t, m.WriteUnit(context.Background(), 8080))

	content, err := os.ReadFile(m.UnitPath())
	require.NoError(t, err)
	unit := string(content)
	assert.Contains(t, unit, "Environment=PORT=8080\n")
	assert.Contains(t, unit, "WorkingDirectory=/opt/qbit-smart-web\n")
	assert.Contains(t, unit, "ExecStart=/usr/bin/python3 /opt/qbit-smart-web/app.py\n")
	assert.Contains(t, unit, "Restart=always\n")
	assert.Contains(t, unit, "RestartSec=10\n")
	assert.Contains(t, unit, "User=root\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target\n")

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable qbit-smart-web.service",
	}, runner.Lines())

	port, err := m.ConfiguredPort()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestWriteUnit_RewritesPort(t *testing.T) {
	m := newManager(t, domaintest.NewRunner())
	require.NoError(t, m.WriteUnit(context.Background(), 5000))
	require.NoError(t, m.WriteUnit(context.Background(), 7000))

	port, err := m.ConfiguredPort()
	require.NoError(t, err)
	assert.Equal(t, 7000, port)
}

func TestConfiguredPort_QuotedForm(t *testing.T) {
	m := newManager(t, domaintest.NewRunner())
	unit := "[Service]\nEnvironment=\"PORT=9090\"\nExecStart=/usr/bin/python3 app.py\n"
	require.NoError(t, os.WriteFile(filepath.Join(m.UnitDir, m.Unit), []byte(unit), 0o644))

	port, err := m.ConfiguredPort()
	require.NoError(t, err)
	assert.Equal(t, 9090, port)
}

func TestConfiguredPort_MissingUnit(t *testing.T) {
	m := newManager(t, domaintest.NewRunner())
	_, err := m.ConfiguredPort()
	assert.True(t, os.IsNotExist(err))
}

func TestStart_Active(t *testing.T) {
	runner := domaintest.NewRunner()
	m := newManager(t, runner)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{
		"systemctl restart qbit-smart-web.service",
		"systemctl is-active --quiet qbit-smart-web.service",
	}, runner.Lines())
}

func TestStart_Inactive(t *testing.T) {
	runner := domaintest.NewRunner().
		On("systemctl is-active", domaintest.Response{ExitCode: 3})
	m := newManager(t, runner)

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrServiceInactive)
	assert.Contains(t, err.Error(), "journalctl -u qbit-smart-web.service")
}

func TestStart_RestartFails(t *testing.T) {
	runner := domaintest.NewRunner().Fail("systemctl restart", "Unit not found.")
	m := newManager(t, runner)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrServiceInactive)
	assert.False(t, runner.Ran("systemctl is-active"))
}

func TestStop_IgnoresFailure(t *testing.T) {
	runner := domaintest.NewRunner().Fail("systemctl stop", "not loaded")
	assert.NoError(t, newManager(t, runner).Stop(context.Background()))
}

func TestRemove(t *testing.T) {
	runner := domaintest.NewRunner().Fail("systemctl disable", "not loaded")
	m := newManager(t, runner)
	require.NoError(t, os.WriteFile(m.UnitPath(), []byte("[Unit]\n"), 0o644))

	require.NoError(t, m.Remove(context.Background()))
	assert.NoFileExists(t, m.UnitPath())
	assert.Equal(t, "systemctl daemon-reload", runner.Lines()[len(runner.Lines())-1])

	// second removal is a no-op
	require.NoError(t, m.Remove(context.Background()))
}

func TestLogs(t *testing.T) {
	runner := domaintest.NewRunner().
		On("journalctl", domaintest.Response{Output: "line 1\nline 2\n"})
	m := newManager(t, runner)

	out, err := m.Logs(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", out)
	assert.True(t, runner.Ran("journalctl -u qbit-smart-web.service -n 50 --no-pager"))
}

func TestStatus_InactiveIsNotAnError(t *testing.T) {
	runner := domaintest.NewRunner().
		On("systemctl status", domaintest.Response{Output: "Active: inactive (dead)", ExitCode: 3})
	out, err := newManager(t, runner).Status(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "inactive")
}
