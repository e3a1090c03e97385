package tasks

import (
	"os"
	"path/filepath"
	"strings"
)

type TaskExecutionCheck interface {
	CanExecute() bool
	PostExecute()
}

// StampExecutionCheck skips a task whose inputs have not changed since its
// last successful run. The fingerprint of those inputs is kept in a stamp file.
type StampExecutionCheck struct {
	Stamp       string
	Fingerprint string
}

// Check if the stamp file is missing or records another fingerprint
func (chk StampExecutionCheck) CanExecute() bool {
	content, err := os.ReadFile(chk.Stamp)
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(content)) != chk.Fingerprint
}

func (chk StampExecutionCheck) PostExecute() {
	if err := os.MkdirAll(filepath.Dir(chk.Stamp), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(chk.Stamp, []byte(chk.Fingerprint+"\n"), 0o644)
}
