package domain

import (
	"fmt"
	"time"
)

// InstallState is the coarse lifecycle state of a deployment.
type InstallState int

const (
	NotInstalled InstallState = iota
	Installed
)

func (s InstallState) String() string {
	switch s {
	case NotInstalled:
		return "not installed"
	case Installed:
		return "installed"
	}
	return fmt.Sprintf("InstallState(%d)", int(s))
}

// Deployment is the persisted configuration of one installation.
type Deployment struct {
	InstallDir  string    `yaml:"install_dir"`
	Port        int       `yaml:"port"`
	Domain      string    `yaml:"domain,omitempty"`
	TLS         bool      `yaml:"tls"`
	Email       string    `yaml:"email,omitempty"`
	Version     string    `yaml:"version,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

const PublicAddressPlaceholder = "YOUR_SERVER_IP"

// AccessURL is the address users should open once the service is running.
func (d Deployment) AccessURL() string {
	switch {
	case d.Domain != "" && d.TLS:
		return "https://" + d.Domain
	case d.Domain != "":
		return "http://" + d.Domain
	}
	return fmt.Sprintf("http://%s:%d", PublicAddressPlaceholder, d.Port)
}

// Artifact describes the tree installed by a fetch.
type Artifact struct {
	Source    string // "release" or "branch"
	Version   string
	Preserved []string
}
