package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbitsmart/qsw/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
	assert.Equal(t, 5000, s.DefaultPort)
	assert.Equal(t, []string{"qbit_smart.db"}, s.Preserve)
	assert.Equal(t, "qbit-smart-web.service", s.UnitName())
	assert.Equal(t, DefaultPassphraseEnv, s.BackupPassphraseEnv)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qsw.yml")
	content := `
install_dir: /srv/qsw
default_port: 6363
backup_passphrase_env: QSW_VAULT_KEY
preserve: [qbit_smart.db, qbit_smart.log]
upstream:
  repo: someone/fork
  api_base: http://127.0.0.1:9000/
nginx:
  root: /tmp/nginx
systemd:
  settle_seconds: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/qsw", s.InstallDir)
	assert.Equal(t, 6363, s.DefaultPort)
	assert.Equal(t, []string{"qbit_smart.db", "qbit_smart.log"}, s.Preserve)
	assert.Equal(t, "someone/fork", s.Upstream.Repo)
	assert.Equal(t, "http://127.0.0.1:9000", s.Upstream.APIBase)
	assert.Equal(t, "main", s.Upstream.Branch)
	assert.Equal(t, "/tmp/nginx", s.NginxRoot)
	assert.Equal(t, time.Duration(0), s.Settle)
	assert.Equal(t, "qbit-smart-web", s.ServiceName)
	assert.Equal(t, "QSW_VAULT_KEY", s.BackupPassphraseEnv)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"root install dir": "install_dir: /\n",
		"relative dir":     "install_dir: opt/app\n",
		"port":             "default_port: 70000\n",
		"repo":             "upstream:\n  repo: nobody\n",
		"preserve escape":  "preserve: [../etc/passwd]\n",
		"syntax":           "install_dir: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "qsw.yml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultFilename, Path(""))

	t.Setenv(EnvConfigPath, "/etc/alt.yml")
	assert.Equal(t, "/etc/alt.yml", Path(""))
	assert.Equal(t, "/explicit.yml", Path("/explicit.yml"))
}

func TestStateStore_RoundTrip(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "nested", "deployment.yml"))

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	dep := domain.Deployment{
		InstallDir:  "/opt/qbit-smart-web",
		Port:        6363,
		Domain:      "pt.example.com",
		TLS:         true,
		Email:       "ops@example.com",
		InstalledAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Save(dep))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dep.Port, got.Port)
	assert.Equal(t, dep.Domain, got.Domain)
	assert.True(t, got.TLS)
	assert.True(t, dep.InstalledAt.Equal(got.InstalledAt))

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete())
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
