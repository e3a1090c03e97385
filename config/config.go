package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFilename = "/etc/qsw/qsw.yml"
	EnvConfigPath   = "QSW_CONFIG"

	// DefaultPassphraseEnv holds the backup passphrase unless the settings
	// name another variable.
	DefaultPassphraseEnv = "QSW_BACKUP_PASSPHRASE"
)

// Settings is the installer configuration.
type Settings struct {
	InstallDir  string
	ServiceName string
	DefaultPort int
	EntryModule string
	Python      string
	StateFile   string
	LogFile     string
	BackupDir   string
	// BackupPassphraseEnv names the environment variable whose value seals
	// backup archives. Archives are written in clear when it is unset.
	BackupPassphraseEnv string
	OSRelease           string
	Preserve            []string
	PythonPackages      []string

	Upstream UpstreamSpec

	NginxRoot string
	SiteName  string

	UnitDir string
	Settle  time.Duration
}

// Defaults returns the settings used when no file overrides them.
func Defaults() Settings {
	return Settings{
		InstallDir:          "/opt/qbit-smart-web",
		ServiceName:         "qbit-smart-web",
		DefaultPort:         5000,
		EntryModule:         "app.py",
		Python:              "python3",
		StateFile:           "/etc/qsw/deployment.yml",
		LogFile:             "/var/log/qsw.log",
		BackupDir:           "/var/backups/qsw",
		BackupPassphraseEnv: DefaultPassphraseEnv,
		OSRelease:           "/etc/os-release",
		Preserve:            []string{"qbit_smart.db"},
		PythonPackages: []string{
			"flask",
			"requests",
			"beautifulsoup4",
			"lxml",
			"feedparser",
			"qbittorrent-api",
		},
		Upstream: UpstreamSpec{
			Repo:    "qbit-smart/qbit-smart-web",
			Branch:  "main",
			APIBase: "https://api.github.com",
			WebBase: "https://github.com",
			Timeout: 300,
		},
		NginxRoot: "/etc/nginx",
		SiteName:  "qbit-smart-web",
		UnitDir:   "/etc/systemd/system",
		Settle:    3 * time.Second,
	}
}

// Path resolves the settings file location: explicit flag, then the
// environment, then the default.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := strings.TrimSpace(os.Getenv(EnvConfigPath)); v != "" {
		return v
	}
	return DefaultFilename
}

// Load reads the settings file at path over the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Settings, error) {
	settings := Defaults()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings %s: %w", path, err)
	}

	var parsed parserConfig
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return settings, fmt.Errorf("parse settings %s: %w", path, err)
	}
	parsed.apply(&settings)

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

func (parsed parserConfig) apply(s *Settings) {
	setString(&s.InstallDir, parsed.InstallDir)
	setString(&s.ServiceName, parsed.ServiceName)
	setString(&s.EntryModule, parsed.EntryModule)
	setString(&s.Python, parsed.Python)
	setString(&s.StateFile, parsed.StateFile)
	setString(&s.LogFile, parsed.LogFile)
	setString(&s.BackupDir, parsed.BackupDir)
	setString(&s.BackupPassphraseEnv, parsed.BackupPassphraseEnv)
	setString(&s.OSRelease, parsed.OSRelease)
	if parsed.DefaultPort != 0 {
		s.DefaultPort = parsed.DefaultPort
	}
	if parsed.Preserve != nil {
		s.Preserve = parsed.Preserve
	}
	if len(parsed.PythonPackages) > 0 {
		s.PythonPackages = parsed.PythonPackages
	}

	if u := parsed.Upstream; u != nil {
		setString(&s.Upstream.Repo, u.Repo)
		setString(&s.Upstream.Branch, u.Branch)
		setString(&s.Upstream.APIBase, strings.TrimRight(u.APIBase, "/"))
		setString(&s.Upstream.WebBase, strings.TrimRight(u.WebBase, "/"))
		if u.Timeout > 0 {
			s.Upstream.Timeout = u.Timeout
		}
	}
	if n := parsed.Nginx; n != nil {
		setString(&s.NginxRoot, n.Root)
		setString(&s.SiteName, n.SiteName)
	}
	if sd := parsed.Systemd; sd != nil {
		setString(&s.UnitDir, sd.UnitDir)
		if sd.SettleSeconds != nil {
			s.Settle = time.Duration(*sd.SettleSeconds) * time.Second
		}
	}
}

func (s Settings) Validate() error {
	if !filepath.IsAbs(s.InstallDir) || filepath.Clean(s.InstallDir) == "/" {
		return fmt.Errorf("install_dir must be an absolute path below /, got %q", s.InstallDir)
	}
	if s.DefaultPort < 1 || s.DefaultPort > 65535 {
		return fmt.Errorf("default_port out of range: %d", s.DefaultPort)
	}
	if s.ServiceName == "" || strings.ContainsAny(s.ServiceName, "/ ") {
		return fmt.Errorf("invalid service_name %q", s.ServiceName)
	}
	if strings.Count(s.Upstream.Repo, "/") != 1 {
		return fmt.Errorf("upstream.repo must be owner/name, got %q", s.Upstream.Repo)
	}
	for _, p := range s.Preserve {
		if p == "" || strings.Contains(p, "..") || filepath.IsAbs(p) {
			return fmt.Errorf("invalid preserve entry %q", p)
		}
	}
	return nil
}

// UnitName is the systemd unit file name.
func (s Settings) UnitName() string {
	return s.ServiceName + ".service"
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
