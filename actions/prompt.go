package actions

import (
	"github.com/Songmu/prompter"
)

// Prompter asks the operator questions. Workflows never read stdin directly.
type Prompter interface {
	YN(message string, def bool) bool
	Prompt(message, def string) string
}

// TerminalPrompter reads answers from the controlling terminal.
type TerminalPrompter struct{}

func (TerminalPrompter) YN(message string, def bool) bool {
	return prompter.YN(message, def)
}

func (TerminalPrompter) Prompt(message, def string) string {
	return prompter.Prompt(message, def)
}
