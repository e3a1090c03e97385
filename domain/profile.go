package domain

type PackageFamily string

const (
	FamilyApt PackageFamily = "apt"
	FamilyYum PackageFamily = "yum"
)

type SiteLayout int

const (
	// LayoutSitesEnabled is the Debian layout: sites-available + sites-enabled symlinks.
	LayoutSitesEnabled SiteLayout = iota
	// LayoutConfD is the RHEL layout: one file per site in conf.d.
	LayoutConfD
)

// Profile is the package-manager command set and host layout selected by the
// environment probe.
type Profile struct {
	OSID     string
	Family   PackageFamily
	Refresh  CommandArgs
	Install  CommandArgs
	Packages []string

	SiteLayout   SiteLayout
	RenewalTimer string
}

// RefreshCommand returns the package index refresh invocation.
func (p Profile) RefreshCommand() Command {
	return NewStreamingCommand(p.Refresh)
}

// InstallCommand returns the install invocation for the given packages.
func (p Profile) InstallCommand(packages ...string) Command {
	list := append(CommandArgs{}, p.Install...)
	list = append(list, packages...)
	return NewStreamingCommand(list)
}

// Binary is the package-manager executable the profile depends on.
func (p Profile) Binary() string {
	if len(p.Install) == 0 {
		return ""
	}
	return p.Install[0]
}
