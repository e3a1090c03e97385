package config

// parserConfig mirrors the YAML settings file. Zero values mean "keep the
// built-in default".
type parserConfig struct {
	InstallDir          string        `yaml:"install_dir"`
	ServiceName         string        `yaml:"service_name"`
	DefaultPort         int           `yaml:"default_port"`
	EntryModule         string        `yaml:"entry_module"`
	Python              string        `yaml:"python"`
	StateFile           string        `yaml:"state_file"`
	LogFile             string        `yaml:"log_file"`
	BackupDir           string        `yaml:"backup_dir"`
	BackupPassphraseEnv string        `yaml:"backup_passphrase_env"`
	OSRelease           string        `yaml:"os_release"`
	Preserve            []string      `yaml:"preserve"`
	PythonPackages      []string      `yaml:"python_packages"`
	Upstream            *UpstreamSpec `yaml:"upstream"`
	Nginx               *NginxSpec    `yaml:"nginx"`
	Systemd             *SystemdSpec  `yaml:"systemd"`
}

type UpstreamSpec struct {
	Repo    string `yaml:"repo"`
	Branch  string `yaml:"branch"`
	APIBase string `yaml:"api_base"`
	WebBase string `yaml:"web_base"`
	Timeout int    `yaml:"timeout_seconds"`
}

type NginxSpec struct {
	Root     string `yaml:"root"`
	SiteName string `yaml:"site_name"`
}

type SystemdSpec struct {
	UnitDir       string `yaml:"unit_dir"`
	SettleSeconds *int   `yaml:"settle_seconds"`
}
