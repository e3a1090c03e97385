package domain

import "context"

// DependencyInstaller installs the OS and Python packages the application needs.
type DependencyInstaller interface {
	InstallDependencies(ctx context.Context, force bool) error
}

// ArtifactFetcher replaces the installed application tree with the latest
// upstream snapshot, keeping preserved files.
type ArtifactFetcher interface {
	Fetch(ctx context.Context) (Artifact, error)
}

// ServiceManager owns the service unit of the application.
type ServiceManager interface {
	WriteUnit(ctx context.Context, port int) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsActive(ctx context.Context) bool
	Status(ctx context.Context) (string, error)
	Logs(ctx context.Context, lines int) (string, error)
	Remove(ctx context.Context) error
	ConfiguredPort() (int, error)
	UnitPath() string
}

// ProxyManager owns the reverse-proxy site bound to the application.
type ProxyManager interface {
	Configure(ctx context.Context, domain string, port int) error
	Remove(ctx context.Context) error
	EnabledSites() ([]string, error)
}

// CertificateAgent obtains TLS certificates for a proxied domain.
type CertificateAgent interface {
	Provision(ctx context.Context, domain, email string) error
}
