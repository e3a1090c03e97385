package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbitsmart/qsw/domain"
)

func TestExecRunner(t *testing.T) {
	var stdout bytes.Buffer
	r := &ExecRunner{Log: zerolog.Nop(), Stdout: &stdout, Stderr: &stdout}

	res := r.Run(context.Background(), domain.NewCommand(domain.CommandArgs{"sh", "-c", "echo hello; exit 3"}))
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "hello\n", res.Output)
	assert.NoError(t, res.Err)
	assert.Error(t, res.Error())
	assert.Empty(t, stdout.String())

	res = r.Run(context.Background(), domain.NewStreamingCommand(domain.CommandArgs{"sh", "-c", "echo streamed"}))
	assert.True(t, res.OK())
	assert.Equal(t, "streamed\n", stdout.String())
}

func TestExecRunner_NotFound(t *testing.T) {
	r := NewExecRunner(zerolog.Nop())
	res := r.Run(context.Background(), domain.NewCommand(domain.CommandArgs{"qsw-no-such-binary"}))
	assert.True(t, IsNotFound(res))
	assert.False(t, res.OK())

	_, err := r.LookPath("qsw-no-such-binary")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "qsw.log")
	var out bytes.Buffer
	log, closeLog := NewLogger(path, false, NewPlainConsole(&out))

	runLog := WithRun(log, "install")
	runLog.Info().Str("step", "fetch").Msg("done")
	log.Debug().Msg("hidden")
	require.NoError(t, closeLog())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "install", record["workflow"])
	assert.Equal(t, "fetch", record["step"])
	assert.NotEmpty(t, record["run_id"])
	assert.Empty(t, out.String())
}

func TestNewLogger_UnwritableFileWarns(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o600))

	var out bytes.Buffer
	log, closeLog := NewLogger(filepath.Join(blocker, "qsw.log"), false, NewPlainConsole(&out))
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
	assert.NoError(t, closeLog())
	assert.Contains(t, out.String(), "Logging disabled")
	assert.Contains(t, out.String(), blocker)
}

func TestNewLogger_NoWriter(t *testing.T) {
	log, closeLog := NewLogger("", false, nil)
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
	assert.NoError(t, closeLog())
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewPlainConsole(&out)
	c.Step("Installing %s", "nginx")
	c.Success("done")
	c.Fail("broken: %d", 2)

	assert.Contains(t, out.String(), "Installing nginx")
	assert.Contains(t, out.String(), "done")
	assert.Contains(t, out.String(), "broken: 2")
}
