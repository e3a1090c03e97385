// Package domaintest provides a scripted domain.Runner for tests.
package domaintest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"qbitsmart/qsw/domain"
)

// Response is the scripted result for commands whose string form starts with
// the registered prefix.
type Response struct {
	Output   string
	ExitCode int
	Err      error

	// Do, when set, runs before the result is returned (e.g. to touch files).
	Do func(cmd domain.Command)
}

// Runner records every command and answers from a prefix table. Commands
// without a matching prefix succeed with empty output.
type Runner struct {
	mu        sync.Mutex
	responses []prefixed
	Commands  []domain.Command
	Missing   map[string]bool
}

type prefixed struct {
	prefix string
	resp   Response
	once   bool
	used   bool
}

func NewRunner() *Runner {
	return &Runner{Missing: map[string]bool{}}
}

// On registers a response for every command starting with prefix. Later
// registrations win over earlier ones.
func (r *Runner) On(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, prefixed{prefix: prefix, resp: resp})
	return r
}

// Once registers a response consumed by the first matching command.
func (r *Runner) Once(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, prefixed{prefix: prefix, resp: resp, once: true})
	return r
}

// Fail makes commands starting with prefix exit with status 1.
func (r *Runner) Fail(prefix, output string) *Runner {
	return r.On(prefix, Response{Output: output, ExitCode: 1})
}

func (r *Runner) Run(_ context.Context, cmd domain.Command) domain.CommandResult {
	r.mu.Lock()
	r.Commands = append(r.Commands, cmd)
	if r.Missing[cmd.Name] {
		r.mu.Unlock()
		return domain.CommandResult{Command: cmd, ExitCode: -1, Err: &exec.Error{Name: cmd.Name, Err: exec.ErrNotFound}}
	}
	line := cmd.String()
	var match *prefixed
	for i := len(r.responses) - 1; i >= 0; i-- {
		p := &r.responses[i]
		if p.once && p.used {
			continue
		}
		if strings.HasPrefix(line, p.prefix) {
			match = p
			break
		}
	}
	var resp Response
	if match != nil {
		match.used = true
		resp = match.resp
	}
	r.mu.Unlock()

	if resp.Do != nil {
		resp.Do(cmd)
	}
	return domain.CommandResult{Command: cmd, Output: resp.Output, ExitCode: resp.ExitCode, Err: resp.Err}
}

func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// Lines returns the string form of every recorded command.
func (r *Runner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		out = append(out, c.String())
	}
	return out
}

// Ran reports whether any recorded command starts with prefix.
func (r *Runner) Ran(prefix string) bool {
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
