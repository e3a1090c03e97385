// Package systemd manages the service unit that runs the web application.
package systemd

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/config"
	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

//go:embed unit.service.tmpl
var unitTemplate string

var portLine = regexp.MustCompile(`(?m)^\s*Environment="?PORT=(\d+)"?\s*$`)

// Manager implements domain.ServiceManager on top of systemctl.
type Manager struct {
	Runner      domain.Runner
	Unit        string
	UnitDir     string
	InstallDir  string
	Python      string
	EntryModule string
	Settle      time.Duration
	Console     *helpers.Console
	Log         zerolog.Logger
}

func New(settings config.Settings, runner domain.Runner, console *helpers.Console, log zerolog.Logger) *Manager {
	return &Manager{
		Runner:      runner,
		Unit:        settings.UnitName(),
		UnitDir:     settings.UnitDir,
		InstallDir:  settings.InstallDir,
		Python:      settings.Python,
		EntryModule: settings.EntryModule,
		Settle:      settings.Settle,
		Console:     console,
		Log:         log,
	}
}

func (m *Manager) UnitPath() string {
	return filepath.Join(m.UnitDir, m.Unit)
}

// WriteUnit renders the unit for port, installs it and enables it at boot.
func (m *Manager) WriteUnit(ctx context.Context, port int) error {
	python := m.Python
	if p, err := m.Runner.LookPath(python); err == nil {
		python = p
	}

	content, err := utils.Render("unit", unitTemplate, struct {
		InstallDir  string
		Port        int
		Python      string
		EntryModule string
	}{m.InstallDir, port, python, m.EntryModule})
	if err != nil {
		return fmt.Errorf("render unit: %w", err)
	}
	if err := utils.WriteFileAtomic(m.UnitPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	m.Log.Info().Str("unit", m.UnitPath()).Int("port", port).Msg("unit written")

	if err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	return m.systemctl(ctx, "enable", m.Unit)
}

// Start restarts the service and verifies it is still running once the
// settle delay has passed.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.systemctl(ctx, "restart", m.Unit); err != nil {
		return err
	}

	if m.Settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Settle):
		}
	}

	if !m.IsActive(ctx) {
		m.Log.Error().Str("unit", m.Unit).Msg("service not active after start")
		return fmt.Errorf("%w: see 'journalctl -u %s -n 50 --no-pager'", domain.ErrServiceInactive, m.Unit)
	}
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	if err := m.systemctl(ctx, "stop", m.Unit); err != nil {
		m.Log.Debug().Err(err).Msg("stop failed, ignored")
	}
	return nil
}

func (m *Manager) IsActive(ctx context.Context) bool {
	return m.Runner.Run(ctx, domain.NewCommand([]string{"systemctl", "is-active", "--quiet", m.Unit})).OK()
}

// Status returns the systemctl status report. An inactive unit is not an
// error; a missing systemctl is.
func (m *Manager) Status(ctx context.Context) (string, error) {
	res := m.Runner.Run(ctx, domain.NewCommand([]string{"systemctl", "status", m.Unit, "--no-pager"}))
	if helpers.IsNotFound(res) {
		return "", res.Error()
	}
	return res.Output, nil
}

func (m *Manager) Logs(ctx context.Context, lines int) (string, error) {
	res := m.Runner.Run(ctx, domain.NewCommand([]string{"journalctl", "-u", m.Unit, "-n", strconv.Itoa(lines), "--no-pager"}))
	if !res.OK() {
		return res.Output, res.Error()
	}
	return res.Output, nil
}

// Remove stops and disables the service, deletes its unit file and reloads
// systemd. A unit that was never installed is not an error.
func (m *Manager) Remove(ctx context.Context) error {
	_ = m.Stop(ctx)
	if err := m.systemctl(ctx, "disable", m.Unit); err != nil {
		m.Log.Debug().Err(err).Msg("disable failed, ignored")
	}
	if err := os.Remove(m.UnitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit: %w", err)
	}
	return m.systemctl(ctx, "daemon-reload")
}

// ConfiguredPort reads the PORT environment entry back from the installed
// unit file.
func (m *Manager) ConfiguredPort() (int, error) {
	content, err := os.ReadFile(m.UnitPath())
	if err != nil {
		return 0, err
	}
	match := portLine.FindSubmatch(content)
	if match == nil {
		return 0, errors.New("no PORT entry in " + m.UnitPath())
	}
	return strconv.Atoi(string(match[1]))
}

func (m *Manager) systemctl(ctx context.Context, args ...string) error {
	res := m.Runner.Run(ctx, domain.NewCommand(append([]string{"systemctl"}, args...)))
	return res.Error()
}
