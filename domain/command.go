package domain

import (
	"context"
	"fmt"
	"strings"
)

type CommandArgs []string

// Command is one external program invocation.
type Command struct {
	Name string
	Args []string

	// Stream mirrors the command output to the terminal while it runs.
	Stream bool
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " "))
}

func NewCommand(list CommandArgs) Command {
	var name string
	var args []string

	if len(list) > 1 {
		name = list[0]
		args = list[1:]
	} else if len(list) == 1 {
		name = list[0]
		args = []string{}
	}

	return Command{Name: name, Args: args}
}

// NewStreamingCommand builds a command whose output is shown to the operator.
func NewStreamingCommand(list CommandArgs) Command {
	cmd := NewCommand(list)
	cmd.Stream = true
	return cmd
}

// CommandResult is the structured outcome of running a Command.
type CommandResult struct {
	Command  Command
	Output   string
	ExitCode int
	Err      error
}

func (r CommandResult) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Error returns nil for a successful result, otherwise an error that names
// the command and carries the trimmed output.
func (r CommandResult) Error() error {
	if r.OK() {
		return nil
	}
	out := strings.TrimSpace(r.Output)
	if len(out) > 512 {
		out = "..." + out[len(out)-512:]
	}
	if r.Err != nil {
		if out == "" {
			return fmt.Errorf("%s: %w", r.Command, r.Err)
		}
		return fmt.Errorf("%s: %w: %s", r.Command, r.Err, out)
	}
	if out == "" {
		return fmt.Errorf("%s: exit status %d", r.Command, r.ExitCode)
	}
	return fmt.Errorf("%s: exit status %d: %s", r.Command, r.ExitCode, out)
}

// Runner executes external commands. The production implementation shells
// out; tests substitute a scripted one.
type Runner interface {
	Run(ctx context.Context, cmd Command) CommandResult
	LookPath(name string) (string, error)
}
