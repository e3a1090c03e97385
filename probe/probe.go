// Package probe identifies the host distribution and selects the
// package-manager profile used by the rest of the installer.
package probe

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"qbitsmart/qsw/domain"
)

var (
	aptIDs = []string{"debian", "ubuntu", "raspbian", "linuxmint", "pop"}
	yumIDs = []string{"centos", "rhel", "fedora", "rocky", "almalinux", "ol", "amzn"}
)

var basePackages = []string{
	"python3",
	"python3-pip",
	"curl",
	"tar",
	"unzip",
	"git",
	"nginx",
	"certbot",
	"python3-certbot-nginx",
}

// RequireRoot fails unless euid is 0.
func RequireRoot(euid int) error {
	if euid != 0 {
		return fmt.Errorf("%w (use sudo)", domain.ErrNotRoot)
	}
	return nil
}

// OSRelease holds the fields of /etc/os-release the probe cares about.
type OSRelease struct {
	ID         string
	IDLike     []string
	PrettyName string
}

func ReadOSRelease(path string) (OSRelease, error) {
	file, err := os.Open(path)
	if err != nil {
		return OSRelease{}, err
	}
	defer file.Close()

	var rel OSRelease
	s := bufio.NewScanner(file)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		v := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		switch strings.TrimSpace(parts[0]) {
		case "ID":
			rel.ID = strings.ToLower(v)
		case "ID_LIKE":
			rel.IDLike = strings.Fields(strings.ToLower(v))
		case "PRETTY_NAME":
			rel.PrettyName = v
		}
	}
	return rel, s.Err()
}

// Detect reads the os-release file and maps it to a profile. Unknown
// distributions are an error: there is no fallback profile.
func Detect(osReleasePath string, lookPath func(string) (string, error)) (domain.Profile, error) {
	rel, err := ReadOSRelease(osReleasePath)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: cannot read %s: %v", domain.ErrUnsupportedOS, osReleasePath, err)
	}
	return ProfileFor(rel, lookPath)
}

func ProfileFor(rel OSRelease, lookPath func(string) (string, error)) (domain.Profile, error) {
	switch {
	case matches(rel, aptIDs):
		return aptProfile(rel.ID), nil
	case matches(rel, yumIDs):
		return yumProfile(rel.ID, lookPath), nil
	}
	id := rel.ID
	if id == "" {
		id = "unknown"
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedOS, id)
}

func matches(rel OSRelease, ids []string) bool {
	if contains(ids, rel.ID) {
		return true
	}
	for _, like := range rel.IDLike {
		if contains(ids, like) {
			return true
		}
	}
	return false
}

func aptProfile(id string) domain.Profile {
	return domain.Profile{
		OSID:         id,
		Family:       domain.FamilyApt,
		Refresh:      domain.CommandArgs{"apt-get", "update", "-y"},
		Install:      domain.CommandArgs{"apt-get", "install", "-y"},
		Packages:     append([]string{}, basePackages...),
		SiteLayout:   domain.LayoutSitesEnabled,
		RenewalTimer: "certbot.timer",
	}
}

func yumProfile(id string, lookPath func(string) (string, error)) domain.Profile {
	bin := "yum"
	if lookPath != nil {
		if _, err := lookPath("dnf"); err == nil {
			bin = "dnf"
		}
	}
	packages := basePackages
	if id != "fedora" {
		// certbot ships in EPEL on the RHEL family
		packages = append([]string{"epel-release"}, basePackages...)
	}
	return domain.Profile{
		OSID:         id,
		Family:       domain.FamilyYum,
		Refresh:      domain.CommandArgs{bin, "makecache", "-y"},
		Install:      domain.CommandArgs{bin, "install", "-y"},
		Packages:     append([]string{}, packages...),
		SiteLayout:   domain.LayoutConfD,
		RenewalTimer: "certbot-renew.timer",
	}
}

func contains(items []string, needle string) bool {
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}
