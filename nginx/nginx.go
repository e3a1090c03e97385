// Package nginx writes and validates the reverse-proxy site for the web
// application.
package nginx

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/config"
	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

//go:embed site.conf.tmpl
var siteTemplate string

// Manager implements domain.ProxyManager.
type Manager struct {
	Runner   domain.Runner
	Root     string
	SiteName string
	Layout   domain.SiteLayout
	Console  *helpers.Console
	Log      zerolog.Logger
}

func New(settings config.Settings, profile domain.Profile, runner domain.Runner, console *helpers.Console, log zerolog.Logger) *Manager {
	return &Manager{
		Runner:   runner,
		Root:     settings.NginxRoot,
		SiteName: settings.SiteName,
		Layout:   profile.SiteLayout,
		Console:  console,
		Log:      log,
	}
}

// SitePath is where the site definition is written.
func (m *Manager) SitePath() string {
	if m.Layout == domain.LayoutConfD {
		return filepath.Join(m.Root, "conf.d", m.SiteName+".conf")
	}
	return filepath.Join(m.Root, "sites-available", m.SiteName)
}

// linkPath is the sites-enabled symlink, empty for the conf.d layout.
func (m *Manager) linkPath() string {
	if m.Layout == domain.LayoutConfD {
		return ""
	}
	return filepath.Join(m.Root, "sites-enabled", m.SiteName)
}

func (m *Manager) defaultPath() string {
	if m.Layout == domain.LayoutConfD {
		return filepath.Join(m.Root, "conf.d", "default.conf")
	}
	return filepath.Join(m.Root, "sites-enabled", "default")
}

func (m *Manager) enabledDir() string {
	if m.Layout == domain.LayoutConfD {
		return filepath.Join(m.Root, "conf.d")
	}
	return filepath.Join(m.Root, "sites-enabled")
}

// Configure points the site for host at the local application port. The
// distribution's default site is disabled. When nginx rejects the result
// the previous files are put back and nginx is not reloaded.
func (m *Manager) Configure(ctx context.Context, host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: empty domain", domain.ErrInvalidInput)
	}

	content, err := utils.Render("site", siteTemplate, struct {
		Domain string
		Port   int
	}{host, port})
	if err != nil {
		return fmt.Errorf("render site: %w", err)
	}

	paths := []string{m.SitePath(), m.defaultPath()}
	if link := m.linkPath(); link != "" {
		paths = append(paths, link)
	}
	var saved []snapshot
	for _, p := range paths {
		s, err := take(p)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", p, err)
		}
		saved = append(saved, s)
	}
	rollback := func() {
		for _, s := range saved {
			if err := s.restore(); err != nil {
				m.Log.Error().Err(err).Str("path", s.path).Msg("restore failed")
			}
		}
	}

	if err := m.writeSite(content); err != nil {
		rollback()
		return err
	}
	if err := os.Remove(m.defaultPath()); err != nil && !os.IsNotExist(err) {
		rollback()
		return fmt.Errorf("disable default site: %w", err)
	}

	if res := m.Runner.Run(ctx, domain.NewCommand([]string{"nginx", "-t"})); !res.OK() {
		rollback()
		m.Log.Error().Str("output", res.Output).Msg("nginx rejected the configuration")
		return fmt.Errorf("%w: %v", domain.ErrProxyInvalid, res.Error())
	}

	m.Log.Info().Str("domain", host).Int("port", port).Str("site", m.SitePath()).Msg("site configured")
	return m.reload(ctx)
}

func (m *Manager) writeSite(content string) error {
	if err := utils.WriteFileAtomic(m.SitePath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write site: %w", err)
	}
	link := m.linkPath()
	if link == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(m.SitePath(), link); err != nil {
		return fmt.Errorf("enable site: %w", err)
	}
	return nil
}

// Remove deletes the installer's site and reloads nginx if anything was
// removed.
func (m *Manager) Remove(ctx context.Context) error {
	removed := false
	for _, p := range []string{m.linkPath(), m.SitePath()} {
		if p == "" {
			continue
		}
		err := os.Remove(p)
		if err == nil {
			removed = true
			continue
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("remove site: %w", err)
		}
	}
	if !removed {
		return nil
	}

	if res := m.Runner.Run(ctx, domain.NewCommand([]string{"nginx", "-t"})); !res.OK() {
		return fmt.Errorf("%w: %v", domain.ErrProxyInvalid, res.Error())
	}
	return m.reload(ctx)
}

// EnabledSites lists the site files nginx currently loads.
func (m *Manager) EnabledSites() ([]string, error) {
	entries, err := os.ReadDir(m.enabledDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sites []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m.Layout == domain.LayoutConfD && !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		sites = append(sites, e.Name())
	}
	sort.Strings(sites)
	return sites, nil
}

func (m *Manager) reload(ctx context.Context) error {
	res := m.Runner.Run(ctx, domain.NewCommand([]string{"systemctl", "reload-or-restart", "nginx"}))
	if !res.OK() {
		return fmt.Errorf("reload nginx: %w", res.Error())
	}
	if r := m.Runner.Run(ctx, domain.NewCommand([]string{"systemctl", "enable", "nginx"})); !r.OK() {
		m.Console.Warn("could not enable nginx at boot: %v", r.Error())
	}
	return nil
}
