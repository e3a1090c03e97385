package helpers

import (
	"os"

	"golang.org/x/term"
)

// Interactive reports whether stdin is a terminal the operator can answer
// prompts on.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
