package helpers

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console prints operator-facing progress lines.
type Console struct {
	Out io.Writer
	Err io.Writer
}

func NewConsole() *Console {
	return &Console{Out: color.Output, Err: color.Error}
}

// NewPlainConsole writes uncolored output to w (used by tests and pipes).
func NewPlainConsole(w io.Writer) *Console {
	return &Console{Out: w, Err: w}
}

func (c *Console) Step(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, "\n %s %s\n", color.CyanString("▶"), fmt.Sprintf(format, args...))
}

func (c *Console) Info(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, "   %s\n", fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, " %s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, " %s %s\n", color.YellowString("!"), fmt.Sprintf(format, args...))
}

func (c *Console) Fail(format string, args ...interface{}) {
	fmt.Fprintf(c.Err, " %s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.Out, a...)
}

func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
