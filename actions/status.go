package actions

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/utils"
)

// StatusReport is a read-only snapshot of the deployment.
type StatusReport struct {
	State      domain.InstallState
	Deployment domain.Deployment
	Active     bool
	Unit       bool
	Sites      []string
	Databases  []utils.DatabaseInfo
	Service    string
}

// Inspect gathers the status report without changing anything.
func (o *Orchestrator) Inspect(ctx context.Context) StatusReport {
	r := StatusReport{State: o.State()}
	if r.State == domain.NotInstalled {
		return r
	}

	r.Deployment = o.deployment()
	r.Unit = utils.FileExists(o.Service.UnitPath())
	r.Active = o.Service.IsActive(ctx)

	sites, err := o.Proxy.EnabledSites()
	if err != nil {
		o.Log.Warn().Err(err).Msg("cannot list nginx sites")
	}
	r.Sites = sites

	for _, name := range o.Settings.Preserve {
		if !strings.HasSuffix(name, ".db") {
			continue
		}
		path := filepath.Join(o.Settings.InstallDir, name)
		if !utils.FileExists(path) {
			continue
		}
		info, err := utils.InspectDatabase(ctx, path)
		if err != nil {
			o.Log.Warn().Err(err).Str("path", path).Msg("cannot inspect database")
			info.Integrity = err.Error()
		}
		r.Databases = append(r.Databases, info)
	}

	if out, err := o.Service.Status(ctx); err == nil {
		r.Service = out
	}
	return r
}

// Status prints the status report.
func (o *Orchestrator) Status(ctx context.Context) error {
	r := o.Inspect(ctx)
	if r.State == domain.NotInstalled {
		o.Console.Warn("qBit Smart Web Manager is not installed (%s is missing).", o.Settings.InstallDir)
		return nil
	}

	dep := r.Deployment
	service := "stopped"
	switch {
	case !r.Unit:
		service = "no unit, run update or install"
	case r.Active:
		service = "running"
	}
	fields := []field{
		{"State", r.State.String()},
		{"Directory", dep.InstallDir},
		{"Version", orNone(dep.Version)},
		{"Port", strconv.Itoa(dep.Port)},
		{"Domain", orNone(dep.Domain)},
		{"HTTPS", yesNo(dep.TLS)},
		{"Service", service},
		{"Nginx sites", orNone(strings.Join(r.Sites, ", "))},
		{"URL", dep.AccessURL()},
	}
	for _, db := range r.Databases {
		fields = append(fields, field{filepath.Base(db.Path), fmt.Sprintf("%s, %s, %d tables", humanize.Bytes(uint64(db.Size)), db.Integrity, db.Tables)})
	}
	o.Console.Println(box("qBit Smart Web Manager", fields))

	if r.Service != "" {
		o.Console.Println()
		o.Console.Printf("%s\n", strings.TrimRight(r.Service, "\n"))
	}
	return nil
}
