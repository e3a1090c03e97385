package tasks

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	SystemPackagesTask = "system-packages"
	PythonPackagesTask = "python-packages"
)

// InstallTaskNames lists the tasks run by InstallDependencies, in order.
var InstallTaskNames = []string{SystemPackagesTask, PythonPackagesTask}

func CreateTaskWithName(name string, inst *Installer) (Task, error) {
	switch name {
	case SystemPackagesTask:
		return Task{
			Name:        name,
			Description: fmt.Sprintf("Install OS packages with %s", inst.Profile.Binary()),
			Action:      inst.installSystemPackages,
		}, nil
	case PythonPackagesTask:
		task := Task{
			Name:        name,
			Description: "Install Python packages with pip",
			Action:      inst.installPythonPackages,
		}
		if inst.StampPath != "" {
			task.ExecutionCheck = StampExecutionCheck{
				Stamp:       inst.StampPath,
				Fingerprint: fingerprint(inst.Python, inst.PythonPackages),
			}
		}
		return task, nil
	}

	return Task{}, fmt.Errorf("unable to find the task '%s'", name)
}

func fingerprint(python string, packages []string) string {
	sorted := append([]string{}, packages...)
	sort.Strings(sorted)
	return python + ":" + strings.Join(sorted, ",")
}

// StampPathFor places the pip stamp next to the deployment state file.
func StampPathFor(stateFile string) string {
	return filepath.Join(filepath.Dir(stateFile), "pip.stamp")
}
