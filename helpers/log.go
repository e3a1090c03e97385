package helpers

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewLogger writes JSON records to path and, in verbose mode,
// human-readable records to stderr. A log file that cannot be opened is
// reported on console and the run goes on without it. The returned closer
// releases the log file.
func NewLogger(path string, verbose bool, console *Console) (zerolog.Logger, func() error) {
	var writers []io.Writer
	closer := func() error { return nil }

	if path != "" {
		f, err := openLogFile(path)
		if err != nil {
			if console != nil {
				console.Warn("Logging disabled: %v", err)
			}
		} else {
			writers = append(writers, f)
			closer = f.Close
		}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
}

// WithRun tags a logger with a fresh run id and the workflow name.
func WithRun(log zerolog.Logger, workflow string) zerolog.Logger {
	return log.With().
		Str("run_id", uuid.NewString()).
		Str("workflow", workflow).
		Logger()
}
