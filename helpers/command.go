package helpers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/domain"
)

// ExecRunner runs commands on the host.
type ExecRunner struct {
	Log    zerolog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Log: log, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, c domain.Command) domain.CommandResult {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	var buf bytes.Buffer
	if c.Stream {
		cmd.Stdout = io.MultiWriter(r.Stdout, &buf)
		cmd.Stderr = io.MultiWriter(r.Stderr, &buf)
	} else {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	}

	start := time.Now()
	err := cmd.Run()
	res := domain.CommandResult{Command: c, Output: buf.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = err
	}

	r.Log.Debug().
		Str("cmd", c.String()).
		Int("exit", res.ExitCode).
		Dur("took", time.Since(start)).
		Err(res.Err).
		Msg("command finished")

	return res
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// IsNotFound reports whether a result failed because the executable is missing.
func IsNotFound(res domain.CommandResult) bool {
	return res.Err != nil && errors.Is(res.Err, exec.ErrNotFound)
}
