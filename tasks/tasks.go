package tasks

import (
	"context"
	"fmt"
)

// Task is one named step of the dependency installation.
type Task struct {
	Name           string
	Description    string
	ExecutionCheck TaskExecutionCheck
	Action         func(ctx context.Context) error
}

// Execute runs the task unless its execution check says it is up to date.
// It reports whether the action ran.
func (t Task) Execute(ctx context.Context) (bool, error) {
	if t.ExecutionCheck != nil && !t.ExecutionCheck.CanExecute() {
		return false, nil
	}

	if err := t.Action(ctx); err != nil {
		return true, fmt.Errorf("task '%s': %w", t.Name, err)
	}

	if t.ExecutionCheck != nil {
		t.ExecutionCheck.PostExecute()
	}

	return true, nil
}
